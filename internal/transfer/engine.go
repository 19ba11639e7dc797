package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/blobstore"
	"github.com/starford/munin/internal/models"
)

// sendQueueDepth bounds in-flight emission parts. The reader blocks when the
// consumer falls this far behind, so a slow consumer backpressures the read
// loop instead of growing memory.
const sendQueueDepth = 4

// Linker persists attachment metadata with ownership checks. Implemented by
// the relational store.
type Linker interface {
	TargetOwned(ctx context.Context, userID, noteID, shelfID int64) error
	AttachFile(ctx context.Context, file models.File, noteID, shelfID int64) (*models.File, error)
	FileByHash(ctx context.Context, hash string, userID int64) (*models.File, error)
}

// Engine drives chunked transfers between part streams and the content
// store. One stream, one engine call, no shared mutable state.
type Engine struct {
	blobs      blobstore.Provider
	db         Linker
	chunkBytes int64
}

// NewEngine creates an engine with the negotiated chunk size in whole
// megabytes.
func NewEngine(blobs blobstore.Provider, db Linker, chunkSizeMB int) *Engine {
	return &Engine{blobs: blobs, db: db, chunkBytes: int64(chunkSizeMB) << 20}
}

// ChunkBytes is the per-read buffer and maximum chunk payload.
func (e *Engine) ChunkBytes() int64 { return e.chunkBytes }

// MaxPartBytes is the largest single message a decoder should accept: one
// chunk plus a megabyte of headroom for the metadata fields around it.
func (e *Engine) MaxPartBytes() int64 { return e.chunkBytes + 1<<20 }

// cleanupGuard removes a freshly created content object unless disarmed.
// Release is deferred at the ingestion start so the object disappears on
// every exit path; the success path disarms it after the metadata commit.
type cleanupGuard struct {
	armed   bool
	release func()
}

func (g *cleanupGuard) Disarm() { g.armed = false }

func (g *cleanupGuard) Release() {
	if g.armed {
		g.armed = false
		g.release()
	}
}

// Ingest consumes an upload stream: validates the metadata part, verifies
// the target belongs to the owner before any byte is written, streams chunks
// into a fresh content object, sizes the object from disk, and commits the
// metadata linkage. On any failure after the object exists it is deleted
// before returning.
func (e *Engine) Ingest(ctx context.Context, stream UploadStream) (*models.File, error) {
	first, err := stream.Next()
	if err != nil {
		return nil, fmt.Errorf("transfer: read first part: %w", apperr.ErrInvalidArgument)
	}
	meta := first.Metadata
	if meta == nil {
		return nil, fmt.Errorf("transfer: first part carries no metadata: %w", apperr.ErrInvalidArgument)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	if err := e.db.TargetOwned(ctx, meta.UserID, meta.NoteID, meta.ShelfID); err != nil {
		return nil, err
	}

	// A random identifier, not a content digest: identical uploads are
	// independent objects and never contend for a key.
	key := uuid.NewString()

	obj, err := e.blobs.Create(key)
	if err != nil {
		return nil, fmt.Errorf("transfer: create object: %v: %w", err, apperr.ErrInternal)
	}

	guard := &cleanupGuard{armed: true, release: func() {
		_ = obj.Close()
		if rmErr := e.blobs.Remove(key); rmErr != nil {
			slog.Warn("transfer: could not delete partial object",
				slog.String("key", key), slog.String("error", rmErr.Error()))
		}
	}}
	defer guard.Release()

	var i int
	for {
		part, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("transfer: read part: %v: %w", err, apperr.ErrInvalidArgument)
		}
		if part.Metadata != nil {
			return nil, fmt.Errorf("transfer: metadata after first part: %w", apperr.ErrInvalidArgument)
		}
		if int64(len(part.Data)) > e.chunkBytes {
			return nil, fmt.Errorf("transfer: chunk of %d bytes exceeds negotiated %d: %w",
				len(part.Data), e.chunkBytes, apperr.ErrInvalidArgument)
		}
		if _, err := obj.Write(part.Data); err != nil {
			return nil, fmt.Errorf("transfer: write chunk: %v: %w", err, apperr.ErrInternal)
		}
		i++
		logPart("ingest", i, len(part.Data))
	}

	if err := obj.Close(); err != nil {
		return nil, fmt.Errorf("transfer: close object: %v: %w", err, apperr.ErrInternal)
	}

	// Size from the written object, never from client claims.
	size, err := e.blobs.Size(key)
	if err != nil {
		return nil, fmt.Errorf("transfer: size object: %v: %w", err, apperr.ErrInternal)
	}

	file, err := e.db.AttachFile(ctx, models.File{
		UserID: meta.UserID,
		Hash:   key,
		Name:   meta.Name,
		Size:   size,
	}, meta.NoteID, meta.ShelfID)
	if err != nil {
		return nil, err
	}

	guard.Disarm()
	slog.Info("transfer: ingested",
		slog.String("key", key), slog.Int64("size", size), slog.Int("parts", i))
	return file, nil
}

// Emit verifies ownership of the file and returns a finite stream of parts:
// one metadata part, then data parts read at the chunk size. The channel has
// a small fixed capacity; the reader goroutine blocks on it and exits when
// ctx is cancelled (consumer gone). A fresh call re-reads from offset zero.
func (e *Engine) Emit(ctx context.Context, userID int64, hash string) (<-chan DownloadPart, error) {
	file, err := e.db.FileByHash(ctx, hash, userID)
	if err != nil {
		return nil, err
	}

	contentType := mime.TypeByExtension(filepath.Ext(file.Name))
	if contentType == "" {
		return nil, fmt.Errorf("transfer: no content type for %q: %w", file.Name, apperr.ErrInternal)
	}

	obj, size, err := e.blobs.Open(hash)
	if err != nil {
		return nil, fmt.Errorf("transfer: open object: %v: %w", err, apperr.ErrInternal)
	}

	parts := make(chan DownloadPart, sendQueueDepth)
	go func() {
		defer close(parts)
		defer obj.Close()

		meta := DownloadPart{Metadata: &DownloadMetadata{
			Name:        file.Name,
			Size:        size,
			ContentType: contentType,
		}}
		if !send(ctx, parts, meta) {
			return
		}

		buf := make([]byte, e.chunkBytes)
		var i int
		for {
			n, readErr := obj.Read(buf)
			if n > 0 {
				i++
				logPart("emit", i, n)
				data := make([]byte, n)
				copy(data, buf[:n])
				if !send(ctx, parts, DownloadPart{Data: data}) {
					return
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					slog.Warn("transfer: read object",
						slog.String("key", hash), slog.String("error", readErr.Error()))
				}
				return
			}
		}
	}()
	return parts, nil
}

func send(ctx context.Context, parts chan<- DownloadPart, p DownloadPart) bool {
	select {
	case parts <- p:
		return true
	case <-ctx.Done():
		return false
	}
}

// logPart logs every part early on, then decimates so multi-gigabyte
// transfers do not flood the log.
func logPart(dir string, i, n int) {
	if i < 10 || (i < 100 && i%10 == 0) || (i < 1000 && i%100 == 0) || i%1000 == 0 {
		slog.Debug("transfer: part",
			slog.String("dir", dir), slog.Int("part", i), slog.Int("bytes", n))
	}
}
