package store

import (
	"errors"
	"testing"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
)

func tagRow(noteID, tagID int64) noteTag {
	return noteTag{Tag: models.Tag{ID: tagID}, NoteID: noteID}
}

func fileRow(noteID, fileID int64) noteFile {
	return noteFile{File: models.File{ID: fileID}, NoteID: noteID}
}

// Notes arrive in page order (here: created DESC means ids 3, 2, 1);
// attachments arrive in the reversed note order with their own ids DESC, so
// the slice tails line up with forward iteration.
func TestMergeAttachments(t *testing.T) {
	notes := []models.Note{{ID: 3}, {ID: 2}, {ID: 1}}
	tags := []noteTag{
		tagRow(1, 10),
		tagRow(2, 21), tagRow(2, 20),
		tagRow(3, 30),
	}
	files := []noteFile{
		fileRow(1, 100),
		fileRow(3, 301), fileRow(3, 300),
	}

	if err := mergeAttachments(notes, tags, files); err != nil {
		t.Fatalf("mergeAttachments: %v", err)
	}

	if len(notes[0].Tags) != 1 || notes[0].Tags[0].ID != 30 {
		t.Errorf("note 3 tags = %v", notes[0].Tags)
	}
	if len(notes[0].Files) != 2 || notes[0].Files[0].ID != 300 || notes[0].Files[1].ID != 301 {
		t.Errorf("note 3 files = %v", notes[0].Files)
	}
	if len(notes[1].Tags) != 2 || notes[1].Tags[0].ID != 20 || notes[1].Tags[1].ID != 21 {
		t.Errorf("note 2 tags = %v", notes[1].Tags)
	}
	if len(notes[1].Files) != 0 {
		t.Errorf("note 2 files = %v", notes[1].Files)
	}
	if len(notes[2].Tags) != 1 || len(notes[2].Files) != 1 {
		t.Errorf("note 1 = %v / %v", notes[2].Tags, notes[2].Files)
	}
}

func TestMergeAttachmentsInitializesEmptySlices(t *testing.T) {
	notes := []models.Note{{ID: 1}}
	if err := mergeAttachments(notes, nil, nil); err != nil {
		t.Fatalf("mergeAttachments: %v", err)
	}
	if notes[0].Tags == nil || notes[0].Files == nil {
		t.Error("Tags/Files not initialized to empty slices")
	}
}

// An attachment referencing a note outside the page must surface as an
// internal error, never be silently dropped.
func TestMergeAttachmentsLeftover(t *testing.T) {
	notes := []models.Note{{ID: 2}}
	tags := []noteTag{tagRow(9, 1)}

	err := mergeAttachments(notes, tags, nil)
	if !errors.Is(err, apperr.ErrInternal) {
		t.Fatalf("err = %v, want ErrInternal", err)
	}
}
