package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/starford/munin/internal/models"
)

// CreateNote inserts a new note owned by userID.
func (db *DB) CreateNote(ctx context.Context, userID int64, title, text string) (*models.Note, error) {
	now := time.Now().Unix()
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO notes (user_id, title, text, created, last_edited) VALUES (?, ?, ?, ?, ?)`,
		userID, title, text, now, now)
	if err != nil {
		return nil, classify("create note", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, classify("create note id", err)
	}
	return db.getNote(ctx, userID, id)
}

// UpdateNote rewrites title and text, bumps the edit counter and timestamp.
func (db *DB) UpdateNote(ctx context.Context, userID, id int64, title, text string) (*models.Note, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE notes SET title = ?, text = ?, last_edited = ?, times_edited = times_edited + 1
		 WHERE id = ? AND user_id = ?`,
		title, text, time.Now().Unix(), id, userID)
	if err != nil {
		return nil, classify("update note", err)
	}
	if err := requireOneRow("update note", res); err != nil {
		return nil, err
	}
	return db.getNote(ctx, userID, id)
}

// DeleteNote removes a note, its tag and file join rows, and the file rows it
// owned, all in one transaction. It returns the content-store keys of the
// deleted files so the caller can remove the objects after commit; the
// transaction never waits on disk I/O.
func (db *DB) DeleteNote(ctx context.Context, userID, id int64) ([]string, error) {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM note_tags WHERE note_id IN (SELECT id FROM notes WHERE id = ? AND user_id = ?)`,
		id, userID); err != nil {
		return nil, classify("delete note tag links", err)
	}

	var fileIDs []int64
	if err := tx.SelectContext(ctx, &fileIDs,
		`SELECT file_id FROM note_files WHERE note_id IN (SELECT id FROM notes WHERE id = ? AND user_id = ?)`,
		id, userID); err != nil {
		return nil, classify("select note file links", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM note_files WHERE note_id IN (SELECT id FROM notes WHERE id = ? AND user_id = ?)`,
		id, userID); err != nil {
		return nil, classify("delete note file links", err)
	}

	hashes, err := deleteFileRows(ctx, tx, userID, fileIDs)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, classify("delete note", err)
	}
	if err := requireOneRow("delete note", res); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit delete note", err)
	}
	return hashes, nil
}

// ListNotes returns one page of notes matching the filters, each with its
// tags and files attached, plus the total row count for the same filters.
// The page, the count, and both attachment fetches run in one transaction
// for a consistent snapshot.
func (db *DB) ListNotes(ctx context.Context, userID int64, f Filters, s Sort, p Page) ([]models.Note, int64, error) {
	rowSQL, countSQL, rowArgs, countArgs, err := buildListQueries(userID, f, s, p)
	if err != nil {
		return nil, 0, err
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, 0, classify("begin tx", err)
	}
	defer tx.Rollback() //nolint:errcheck

	notes := []models.Note{}
	if err := tx.SelectContext(ctx, &notes, rowSQL, rowArgs...); err != nil {
		return nil, 0, classify("list notes", err)
	}

	var total int64
	if err := tx.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return nil, 0, classify("count notes", err)
	}

	if len(notes) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, 0, classify("commit list notes", err)
		}
		return notes, total, nil
	}

	noteIDs := make([]int64, len(notes))
	for i, n := range notes {
		noteIDs[i] = n.ID
	}

	// The reversed direction here is deliberate: it lets mergeAttachments
	// assign every tag and file in a single pass. See aggregate.go.
	attachOrder := fmt.Sprintf("ORDER BY n.%s %s, n.id ASC", s.Field, s.Dir.reversed())

	var tags []noteTag
	query, args, err := sqlx.In(fmt.Sprintf(
		`SELECT t.*, n.id AS note_id FROM tags AS t
		 INNER JOIN note_tags AS nt ON nt.tag_id = t.id
		 INNER JOIN notes AS n ON nt.note_id = n.id
		 WHERE n.id IN (?) %s, t.id DESC`, attachOrder), noteIDs)
	if err != nil {
		return nil, 0, classify("expand tag fetch", err)
	}
	if err := tx.SelectContext(ctx, &tags, query, args...); err != nil {
		return nil, 0, classify("fetch note tags", err)
	}

	var files []noteFile
	query, args, err = sqlx.In(fmt.Sprintf(
		`SELECT f.*, n.id AS note_id FROM files AS f
		 INNER JOIN note_files AS nf ON nf.file_id = f.id
		 INNER JOIN notes AS n ON nf.note_id = n.id
		 WHERE n.id IN (?) %s, f.id DESC`, attachOrder), noteIDs)
	if err != nil {
		return nil, 0, classify("expand file fetch", err)
	}
	if err := tx.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, 0, classify("fetch note files", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, classify("commit list notes", err)
	}

	if err := mergeAttachments(notes, tags, files); err != nil {
		return nil, 0, err
	}
	return notes, total, nil
}

// AttachTag links a tag to a note. The subselects resolve only rows owned by
// userID; a miss on either side produces a NULL that violates the join
// table's NOT NULL constraint, so the insert cannot cross principals.
func (db *DB) AttachTag(ctx context.Context, userID, noteID, tagID int64) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO note_tags (note_id, tag_id)
		 SELECT (SELECT id FROM notes WHERE id = ? AND user_id = ?),
		        (SELECT id FROM tags WHERE id = ? AND user_id = ?)`,
		noteID, userID, tagID, userID)
	return classify("attach tag", err)
}

// DetachTag removes a note-tag link. Zero affected rows is NotFound.
func (db *DB) DetachTag(ctx context.Context, userID, noteID, tagID int64) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM note_tags
		 WHERE note_id = (SELECT id FROM notes WHERE id = ? AND user_id = ?)
		   AND tag_id = (SELECT id FROM tags WHERE id = ? AND user_id = ?)`,
		noteID, userID, tagID, userID)
	if err != nil {
		return classify("detach tag", err)
	}
	return requireOneRow("detach tag", res)
}

func (db *DB) getNote(ctx context.Context, userID, id int64) (*models.Note, error) {
	var n models.Note
	if err := db.conn.GetContext(ctx, &n,
		`SELECT * FROM notes WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, classify("get note", err)
	}
	n.Tags = []models.Tag{}
	n.Files = []models.File{}
	return &n, nil
}
