package blobstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testFS(t *testing.T) *FS {
	t.Helper()
	f, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f
}

func TestNewFSRequiresDirectory(t *testing.T) {
	if _, err := NewFS("/does/not/exist"); err == nil {
		t.Error("NewFS accepted a missing directory")
	}
}

func TestCreateWriteOpen(t *testing.T) {
	f := testFS(t)

	w, err := f.Create("obj-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	size, err := f.Size("obj-1")
	if err != nil || size != 5 {
		t.Errorf("Size = %d, %v", size, err)
	}

	r, size, err := f.Open("obj-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if size != 5 {
		t.Errorf("open size = %d", size)
	}
	data, _ := io.ReadAll(r)
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}
}

// Objects are create-once: a second Create on the same key must fail rather
// than truncate.
func TestCreateExisting(t *testing.T) {
	f := testFS(t)

	w, err := f.Create("dup")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if _, err := f.Create("dup"); err == nil {
		t.Error("Create overwrote an existing object")
	}
}

func TestSafeKeyRejectsTraversal(t *testing.T) {
	f := testFS(t)

	for _, key := range []string{"", "../escape", "a/b", "/etc/passwd", ".."} {
		if _, err := f.Create(key); err == nil {
			t.Errorf("Create accepted key %q", key)
		}
	}
}

func TestRemoveMissingObject(t *testing.T) {
	f := testFS(t)
	if err := f.Remove("never-existed"); err != nil {
		t.Errorf("Remove missing = %v, want nil", err)
	}
}

func TestRecentlyRemoved(t *testing.T) {
	f := testFS(t)

	w, err := f.Create("tracked")
	if err != nil {
		t.Fatal(err)
	}
	w.Close()

	if f.recentlyRemoved("tracked") {
		t.Error("key marked removed before Remove")
	}
	if err := f.Remove("tracked"); err != nil {
		t.Fatal(err)
	}
	if !f.recentlyRemoved("tracked") {
		t.Error("key not marked after Remove")
	}
	if f.recentlyRemoved("other") {
		t.Error("unrelated key marked removed")
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	f := testFS(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.Watch(ctx, slog.Default())
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
