package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/munin/internal/models"
)

// NoteRequest is the request body for creating or updating a note.
type NoteRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Validate validates the note request.
func (r *NoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
	)
}

// TagRequest is the request body for creating or renaming a tag.
type TagRequest struct {
	Name string `json:"name"`
}

// Validate validates the tag request.
func (r *TagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 128)),
	)
}

// ShelfRequest is the request body for replacing the shelf text.
type ShelfRequest struct {
	Text string `json:"text"`
}

// ConvertShelfRequest is the request body for converting the shelf into a
// note.
type ConvertShelfRequest struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Validate validates the conversion request.
func (r *ConvertShelfRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 512)),
	)
}

// listQuery is the parsed and validated query string of GET /notes.
type listQuery struct {
	Sort    string
	Dir     string
	Page    int64
	PerPage int64
}

// Validate validates the listing sort and pagination parameters.
func (q *listQuery) Validate() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Sort, validation.Required, validation.In("created", "last_edited", "title")),
		validation.Field(&q.Dir, validation.Required, validation.In("asc", "desc")),
		validation.Field(&q.Page, validation.Required, validation.Min(int64(1))),
		validation.Field(&q.PerPage, validation.Required, validation.Min(int64(1)), validation.Max(int64(500))),
	)
}

// NoteListResponse wraps one page of notes and the total match count.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int64         `json:"total"`
}
