// Package noteservice coordinates the relational store, the content store,
// and the transfer engine behind one service surface consumed by the HTTP
// API and the MCP server.
package noteservice

import (
	"context"
	"log/slog"

	"github.com/starford/munin/internal/blobstore"
	"github.com/starford/munin/internal/models"
	"github.com/starford/munin/internal/store"
	"github.com/starford/munin/internal/transfer"
)

// Service owns the wiring between metadata and bytes. Metadata transactions
// are the durability boundary; content-object removal after a committed
// delete is best-effort and only logged.
type Service struct {
	db     *store.DB
	blobs  blobstore.Provider
	engine *transfer.Engine
}

// NewService creates a new note service.
func NewService(db *store.DB, blobs blobstore.Provider, engine *transfer.Engine) *Service {
	return &Service{db: db, blobs: blobs, engine: engine}
}

// MaxPartBytes is the decoder bound for a single upload message.
func (s *Service) MaxPartBytes() int64 {
	return s.engine.MaxPartBytes()
}

// CreateNote creates an empty-attachment note.
func (s *Service) CreateNote(ctx context.Context, userID int64, title, text string) (*models.Note, error) {
	return s.db.CreateNote(ctx, userID, title, text)
}

// UpdateNote rewrites a note's title and text.
func (s *Service) UpdateNote(ctx context.Context, userID, id int64, title, text string) (*models.Note, error) {
	return s.db.UpdateNote(ctx, userID, id, title, text)
}

// DeleteNote removes the note, its joins, and its files' rows, then removes
// the orphaned content objects.
func (s *Service) DeleteNote(ctx context.Context, userID, id int64) error {
	hashes, err := s.db.DeleteNote(ctx, userID, id)
	if err != nil {
		return err
	}
	s.removeObjects(hashes)
	return nil
}

// ListNotes returns one page of aggregated notes plus the total match count.
func (s *Service) ListNotes(ctx context.Context, userID int64, f store.Filters, srt store.Sort, p store.Page) ([]models.Note, int64, error) {
	return s.db.ListNotes(ctx, userID, f, srt, p)
}

// AttachTag links a tag to a note.
func (s *Service) AttachTag(ctx context.Context, userID, noteID, tagID int64) error {
	return s.db.AttachTag(ctx, userID, noteID, tagID)
}

// DetachTag unlinks a tag from a note.
func (s *Service) DetachTag(ctx context.Context, userID, noteID, tagID int64) error {
	return s.db.DetachTag(ctx, userID, noteID, tagID)
}

// CreateTag creates a tag.
func (s *Service) CreateTag(ctx context.Context, userID int64, name string) (*models.Tag, error) {
	return s.db.CreateTag(ctx, userID, name)
}

// ListTags lists the user's tags.
func (s *Service) ListTags(ctx context.Context, userID int64) ([]models.Tag, error) {
	return s.db.ListTags(ctx, userID)
}

// UpdateTag renames a tag.
func (s *Service) UpdateTag(ctx context.Context, userID, id int64, name string) (*models.Tag, error) {
	return s.db.UpdateTag(ctx, userID, id, name)
}

// DeleteTag deletes a tag and its join rows.
func (s *Service) DeleteTag(ctx context.Context, userID, id int64) error {
	return s.db.DeleteTag(ctx, userID, id)
}

// GetShelf returns the user's shelf, creating it on first read.
func (s *Service) GetShelf(ctx context.Context, userID int64) (*models.Shelf, error) {
	return s.db.GetShelf(ctx, userID)
}

// UpdateShelf replaces the shelf text.
func (s *Service) UpdateShelf(ctx context.Context, userID int64, text string) (*models.Shelf, error) {
	return s.db.UpdateShelf(ctx, userID, text)
}

// ClearShelf empties the shelf and deletes its files, rows and objects.
func (s *Service) ClearShelf(ctx context.Context, userID int64) (*models.Shelf, error) {
	shelf, hashes, err := s.db.ClearShelf(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.removeObjects(hashes)
	return shelf, nil
}

// ConvertShelfToNote moves the shelf's files onto a new note and clears the
// shelf.
func (s *Service) ConvertShelfToNote(ctx context.Context, userID int64, title, text string) (*models.Note, error) {
	return s.db.ConvertShelfToNote(ctx, userID, title, text)
}

// CreateAttachment ingests an upload stream into the content store and links
// it to its target entity.
func (s *Service) CreateAttachment(ctx context.Context, stream transfer.UploadStream) (*models.File, error) {
	return s.engine.Ingest(ctx, stream)
}

// DownloadAttachment emits an owned file as a part stream.
func (s *Service) DownloadAttachment(ctx context.Context, userID int64, hash string) (<-chan transfer.DownloadPart, error) {
	return s.engine.Emit(ctx, userID, hash)
}

// DeleteAttachment removes the file row and joins, then the content object.
func (s *Service) DeleteAttachment(ctx context.Context, userID, id int64) error {
	hash, err := s.db.DeleteFile(ctx, userID, id)
	if err != nil {
		return err
	}
	s.removeObjects([]string{hash})
	return nil
}

// removeObjects deletes content objects after their rows are gone. Failures
// are logged, never surfaced: the committed metadata deletion already
// decided the outcome.
func (s *Service) removeObjects(hashes []string) {
	for _, h := range hashes {
		if err := s.blobs.Remove(h); err != nil {
			slog.Warn("noteservice: could not delete content object",
				slog.String("key", h), slog.String("error", err.Error()))
		}
	}
}
