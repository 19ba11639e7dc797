// Package transfer implements chunked attachment ingestion and emission
// against the content store: size-bounded part streams in both directions,
// all-or-nothing metadata linkage, and guaranteed cleanup of partial writes.
package transfer

import (
	"fmt"

	"github.com/starford/munin/internal/apperr"
)

// UploadMetadata is the first part of every ingestion stream: the owning
// principal, exactly one attachment target, and the declared display name.
// No length is declared up front; the object is sized after the last chunk.
type UploadMetadata struct {
	UserID  int64  `json:"-"`
	NoteID  int64  `json:"note_id,omitempty"`
	ShelfID int64  `json:"shelf_id,omitempty"`
	Name    string `json:"name"`
}

// Validate rejects metadata without a name or without exactly one target.
func (m *UploadMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("transfer: metadata name is required: %w", apperr.ErrInvalidArgument)
	}
	if (m.NoteID == 0) == (m.ShelfID == 0) {
		return fmt.Errorf("transfer: metadata must name exactly one of note or shelf: %w", apperr.ErrInvalidArgument)
	}
	return nil
}

// UploadPart is one message of an ingestion stream: either metadata (first
// part only) or a byte chunk of at most the negotiated size.
type UploadPart struct {
	Metadata *UploadMetadata
	Data     []byte
}

// UploadStream yields the parts of one ingestion stream in order.
// Next returns io.EOF after the final part.
type UploadStream interface {
	Next() (UploadPart, error)
}

// DownloadMetadata is the first part of every emission stream.
type DownloadMetadata struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// DownloadPart is one message of an emission stream: the metadata part comes
// first, then data parts of at most the negotiated chunk size.
type DownloadPart struct {
	Metadata *DownloadMetadata
	Data     []byte
}
