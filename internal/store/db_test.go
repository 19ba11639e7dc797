package store

import (
	"context"
	"os"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "munin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	for _, table := range []string{"notes", "tags", "files", "shelves", "note_tags", "note_files", "shelf_files"} {
		var count int
		if err := db.conn.GetContext(ctx, &count, `SELECT count(*) FROM `+table); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}
