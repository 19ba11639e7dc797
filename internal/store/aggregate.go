package store

import (
	"fmt"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
)

// noteTag is a tag row joined with the id of the note it is attached to.
type noteTag struct {
	models.Tag
	NoteID int64 `db:"note_id"`
}

// noteFile is a file row joined with the id of the note it is attached to.
type noteFile struct {
	models.File
	NoteID int64 `db:"note_id"`
}

// mergeAttachments distributes flat tag and file result sets onto their
// owning notes in a single linear pass over each slice.
//
// Precondition: notes are in page order (sort key, then id DESC) and both
// attachment slices are ordered by the owning note's sort key in the
// REVERSED direction, then note id ASC, then the attachment's own id DESC.
// Each slice is consumed from its tail like a stack, so the reversed fetch
// order lines the tails up with forward iteration over the notes. Any change
// to the note sort order must be mirrored by an inverse change here.
//
// Leftover attachments after the pass mean an attachment references a note
// outside the fetched page; that is a data inconsistency, not a request
// error.
func mergeAttachments(notes []models.Note, tags []noteTag, files []noteFile) error {
	ti := len(tags) - 1
	fi := len(files) - 1

	for i := range notes {
		n := &notes[i]
		n.Tags = []models.Tag{}
		n.Files = []models.File{}

		for ti >= 0 && tags[ti].NoteID == n.ID {
			n.Tags = append(n.Tags, tags[ti].Tag)
			ti--
		}
		for fi >= 0 && files[fi].NoteID == n.ID {
			n.Files = append(n.Files, files[fi].File)
			fi--
		}
	}

	if ti >= 0 || fi >= 0 {
		return fmt.Errorf("store: merge attachments: %d tags and %d files unassigned: %w",
			ti+1, fi+1, apperr.ErrInternal)
	}
	return nil
}
