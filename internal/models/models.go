// Package models defines the domain types for Munin.
package models

// Note is a user-owned note together with its attached tags and files.
type Note struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	Title       string `db:"title" json:"title"`
	Text        string `db:"text" json:"text"`
	Created     int64  `db:"created" json:"created"`
	LastEdited  int64  `db:"last_edited" json:"last_edited"`
	TimesEdited int64  `db:"times_edited" json:"times_edited"`

	Tags  []Tag  `db:"-" json:"tags"`
	Files []File `db:"-" json:"files"`
}

// Tag is a user-owned label attached to notes via a many-to-many relation.
// Deleting a tag removes its join rows but never the notes it was attached to.
type Tag struct {
	ID      int64  `db:"id" json:"id"`
	UserID  int64  `db:"user_id" json:"user_id"`
	Name    string `db:"name" json:"name"`
	Created int64  `db:"created" json:"created"`
}

// File is attachment metadata for one content-store object. Hash is the
// object key on disk; it is a random identifier, not a content digest, so
// identical uploads produce independent objects.
type File struct {
	ID      int64  `db:"id" json:"id"`
	UserID  int64  `db:"user_id" json:"user_id"`
	Hash    string `db:"hash" json:"hash"`
	Name    string `db:"name" json:"name"`
	Size    int64  `db:"size" json:"size"`
	Created int64  `db:"created" json:"created"`
}

// Shelf is the per-user scratch note used to stage attachments before
// converting them into a permanent Note. Created lazily on first read.
type Shelf struct {
	ID          int64  `db:"id" json:"id"`
	UserID      int64  `db:"user_id" json:"user_id"`
	Text        string `db:"text" json:"text"`
	Created     int64  `db:"created" json:"created"`
	LastEdited  int64  `db:"last_edited" json:"last_edited"`
	TimesEdited int64  `db:"times_edited" json:"times_edited"`

	Files []File `db:"-" json:"files"`
}
