package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/models"
)

const testUser int64 = 1

func TestCreateAndUpdateNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, testUser, "first", "body")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if note.ID == 0 || note.Title != "first" || note.Created == 0 {
		t.Errorf("note = %+v", note)
	}
	if note.TimesEdited != 0 {
		t.Errorf("times_edited = %d, want 0", note.TimesEdited)
	}

	updated, err := db.UpdateNote(ctx, testUser, note.ID, "second", "new body")
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.Title != "second" || updated.TimesEdited != 1 {
		t.Errorf("updated = %+v", updated)
	}
}

func TestUpdateNoteWrongOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, testUser, "mine", "")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if _, err := db.UpdateNote(ctx, testUser+1, note.ID, "stolen", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteNoteCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, testUser, "with stuff", "")
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	tag, err := db.CreateTag(ctx, testUser, "work")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if err := db.AttachTag(ctx, testUser, note.ID, tag.ID); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}
	file, err := db.AttachFile(ctx, models.File{UserID: testUser, Hash: "key-1", Name: "a.txt", Size: 3}, note.ID, 0)
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	hashes, err := db.DeleteNote(ctx, testUser, note.ID)
	if err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != "key-1" {
		t.Errorf("hashes = %v, want [key-1]", hashes)
	}

	// The file row must be gone with the note.
	if _, err := db.FileByHash(ctx, "key-1", testUser); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("FileByHash after delete = %v, want ErrNotFound", err)
	}
	if _, err := db.DeleteFile(ctx, testUser, file.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("DeleteFile after delete = %v, want ErrNotFound", err)
	}
	// The tag itself survives.
	tags, err := db.ListTags(ctx, testUser)
	if err != nil || len(tags) != 1 {
		t.Errorf("tags after delete = %v, %v", tags, err)
	}
}

func TestDeleteNoteNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := db.DeleteNote(context.Background(), testUser, 99); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListNotesPaginationAndAttachments(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tag, err := db.CreateTag(ctx, testUser, "seen")
	if err != nil {
		t.Fatalf("CreateTag: %v", err)
	}

	var ids []int64
	for i := 0; i < 5; i++ {
		n, err := db.CreateNote(ctx, testUser, fmt.Sprintf("note %d", i), "")
		if err != nil {
			t.Fatalf("CreateNote: %v", err)
		}
		ids = append(ids, n.ID)
	}
	if err := db.AttachTag(ctx, testUser, ids[4], tag.ID); err != nil {
		t.Fatalf("AttachTag: %v", err)
	}
	if _, err := db.AttachFile(ctx, models.File{UserID: testUser, Hash: "k", Name: "f", Size: 1}, ids[4], 0); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	notes, total, err := db.ListNotes(ctx, testUser, Filters{},
		Sort{Field: SortCreated, Dir: SortDesc}, Page{Number: 1, PerPage: 2})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(notes) != 2 {
		t.Fatalf("page size = %d, want 2", len(notes))
	}
	// Newest first: the last created note, carrying the tag and the file.
	if notes[0].ID != ids[4] {
		t.Errorf("first note = %d, want %d", notes[0].ID, ids[4])
	}
	if len(notes[0].Tags) != 1 || notes[0].Tags[0].Name != "seen" {
		t.Errorf("first note tags = %v", notes[0].Tags)
	}
	if len(notes[0].Files) != 1 || notes[0].Files[0].Hash != "k" {
		t.Errorf("first note files = %v", notes[0].Files)
	}
	if notes[1].Tags == nil || notes[1].Files == nil {
		t.Error("untagged note has nil attachment slices")
	}

	// Second page continues where the first left off.
	notes, _, err = db.ListNotes(ctx, testUser, Filters{},
		Sort{Field: SortCreated, Dir: SortDesc}, Page{Number: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("ListNotes page 2: %v", err)
	}
	if len(notes) != 2 || notes[0].ID != ids[2] {
		t.Errorf("page 2 first note = %+v", notes)
	}
}

func TestListNotesTagFilters(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	tagged, err := db.CreateNote(ctx, testUser, "tagged", "")
	if err != nil {
		t.Fatal(err)
	}
	bare, err := db.CreateNote(ctx, testUser, "bare", "")
	if err != nil {
		t.Fatal(err)
	}
	tag, err := db.CreateTag(ctx, testUser, "x")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AttachTag(ctx, testUser, tagged.ID, tag.ID); err != nil {
		t.Fatal(err)
	}

	sort := Sort{Field: SortCreated, Dir: SortDesc}
	page := Page{Number: 1, PerPage: 10}

	// Filter by the tag.
	tagIDs := []int64{tag.ID}
	notes, total, err := db.ListNotes(ctx, testUser, Filters{TagIDs: &tagIDs}, sort, page)
	if err != nil {
		t.Fatalf("ListNotes tag filter: %v", err)
	}
	if total != 1 || len(notes) != 1 || notes[0].ID != tagged.ID {
		t.Errorf("tag filter = %v, total %d", notes, total)
	}

	// Empty set selects only untagged notes.
	empty := []int64{}
	notes, total, err = db.ListNotes(ctx, testUser, Filters{TagIDs: &empty}, sort, page)
	if err != nil {
		t.Fatalf("ListNotes untagged filter: %v", err)
	}
	if total != 1 || len(notes) != 1 || notes[0].ID != bare.ID {
		t.Errorf("untagged filter = %v, total %d", notes, total)
	}

	// No filter returns both.
	_, total, err = db.ListNotes(ctx, testUser, Filters{}, sort, page)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 2 {
		t.Errorf("unfiltered total = %d, want 2", total)
	}
}

func TestListNotesSearch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, testUser, "meeting notes", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateNote(ctx, testUser, "groceries", ""); err != nil {
		t.Fatal(err)
	}

	search := "eeting"
	notes, total, err := db.ListNotes(ctx, testUser, Filters{Search: &search},
		Sort{Field: SortTitle, Dir: SortAsc}, Page{Number: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 1 || len(notes) != 1 || notes[0].Title != "meeting notes" {
		t.Errorf("search = %v, total %d", notes, total)
	}
}

func TestListNotesIsolatedPerUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateNote(ctx, testUser, "mine", ""); err != nil {
		t.Fatal(err)
	}
	notes, total, err := db.ListNotes(ctx, testUser+1, Filters{},
		Sort{Field: SortCreated, Dir: SortDesc}, Page{Number: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if total != 0 || len(notes) != 0 {
		t.Errorf("other user sees %d notes", total)
	}
}

func TestAttachTagCrossOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, testUser, "n", "")
	if err != nil {
		t.Fatal(err)
	}
	otherTag, err := db.CreateTag(ctx, testUser+1, "theirs")
	if err != nil {
		t.Fatal(err)
	}

	// Attaching someone else's tag hits the NOT NULL join constraint.
	if err := db.AttachTag(ctx, testUser, note.ID, otherTag.ID); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDetachTag(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	note, err := db.CreateNote(ctx, testUser, "n", "")
	if err != nil {
		t.Fatal(err)
	}
	tag, err := db.CreateTag(ctx, testUser, "t")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AttachTag(ctx, testUser, note.ID, tag.ID); err != nil {
		t.Fatal(err)
	}
	if err := db.DetachTag(ctx, testUser, note.ID, tag.ID); err != nil {
		t.Fatalf("DetachTag: %v", err)
	}
	// Detaching again is NotFound.
	if err := db.DetachTag(ctx, testUser, note.ID, tag.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second detach = %v, want ErrNotFound", err)
	}
}
