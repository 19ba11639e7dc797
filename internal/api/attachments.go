package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/munin/internal/apperr"
	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/transfer"
)

// multipartPartStream adapts a multipart/form-data request body to an
// upload part stream. The first part must be named "metadata" and carry
// the JSON target description; every following part is a byte chunk.
// The owning principal always comes from the request, never the body.
type multipartPartStream struct {
	reader  *multipart.Reader
	userID  int64
	maxPart int64
	gotMeta bool
}

func (s *multipartPartStream) Next() (transfer.UploadPart, error) {
	part, err := s.reader.NextPart()
	if err != nil {
		return transfer.UploadPart{}, err
	}
	defer part.Close()

	if !s.gotMeta {
		if part.FormName() != "metadata" {
			return transfer.UploadPart{}, fmt.Errorf("api: first part must be metadata: %w", apperr.ErrInvalidArgument)
		}
		var meta transfer.UploadMetadata
		if err := json.NewDecoder(io.LimitReader(part, maxBodyBytes)).Decode(&meta); err != nil {
			return transfer.UploadPart{}, fmt.Errorf("api: decode metadata: %w", apperr.ErrInvalidArgument)
		}
		meta.UserID = s.userID
		s.gotMeta = true
		return transfer.UploadPart{Metadata: &meta}, nil
	}

	// Read one byte past the limit so oversized chunks are detected here
	// rather than silently truncated.
	data, err := io.ReadAll(io.LimitReader(part, s.maxPart+1))
	if err != nil {
		return transfer.UploadPart{}, fmt.Errorf("api: read chunk: %w", err)
	}
	return transfer.UploadPart{Data: data}, nil
}

// AttachmentHandler holds the attachment transfer handlers.
type AttachmentHandler struct {
	svc *noteservice.Service
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(svc *noteservice.Service) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

// Upload handles POST /attachments. The request body is multipart/form-data:
// a "metadata" part first, then one or more chunk parts.
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("multipart body required"))
		return
	}
	stream := &multipartPartStream{
		reader:  mr,
		userID:  principal(r),
		maxPart: h.svc.MaxPartBytes(),
	}
	file, err := h.svc.CreateAttachment(r.Context(), stream)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, file)
}

// Download handles GET /attachments/{hash}. The metadata part sets the
// response headers; data parts are streamed as they arrive.
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	if hash == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid attachment hash"))
		return
	}
	parts, err := h.svc.DownloadAttachment(r.Context(), principal(r), hash)
	if err != nil {
		writeError(w, err)
		return
	}

	flusher, _ := w.(http.Flusher)
	for part := range parts {
		if part.Metadata != nil {
			w.Header().Set("Content-Type", part.Metadata.ContentType)
			w.Header().Set("Content-Length", strconv.FormatInt(part.Metadata.Size, 10))
			w.Header().Set("Content-Disposition",
				mime.FormatMediaType("attachment", map[string]string{"filename": part.Metadata.Name}))
			w.WriteHeader(http.StatusOK)
			continue
		}
		if _, err := w.Write(part.Data); err != nil {
			// Client went away; the request context cancels the producer.
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Delete handles DELETE /attachments/{id}.
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid attachment id"))
		return
	}
	if err := h.svc.DeleteAttachment(r.Context(), principal(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
