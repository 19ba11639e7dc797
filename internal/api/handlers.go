package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/munin/internal/noteservice"
	"github.com/starford/munin/internal/store"
)

const maxBodyBytes = 1 << 20 // JSON bodies only; attachment streams are bounded per part

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

// CreateNote handles POST /notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), principal(r), req.Title, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes/{id}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), principal(r), id, req.Title, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), principal(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNotes handles GET /notes.
//
// Query parameters: sort (created|last_edited|title, default created),
// dir (asc|desc, default desc), page (default 1), per_page (default 20),
// q (title substring), created_from/created_to and edited_from/edited_to
// (paired unix seconds, inclusive), and tags (repeated tag ids). A present
// but valueless tags parameter selects notes with no tags at all.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lq := listQuery{Sort: "created", Dir: "desc", Page: 1, PerPage: 20}
	if v := q.Get("sort"); v != "" {
		lq.Sort = v
	}
	if v := q.Get("dir"); v != "" {
		lq.Dir = v
	}
	if v := q.Get("page"); v != "" {
		lq.Page, _ = strconv.ParseInt(v, 10, 64)
	}
	if v := q.Get("per_page"); v != "" {
		lq.PerPage, _ = strconv.ParseInt(v, 10, 64)
	}
	if err := lq.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	var filters store.Filters

	if q.Has("tags") {
		ids := []int64{}
		for _, v := range q["tags"] {
			if v == "" {
				continue
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id"))
				return
			}
			ids = append(ids, id)
		}
		filters.TagIDs = &ids
	}

	var ok bool
	if filters.Created, ok = dateRange(w, q.Get("created_from"), q.Get("created_to")); !ok {
		return
	}
	if filters.LastEdited, ok = dateRange(w, q.Get("edited_from"), q.Get("edited_to")); !ok {
		return
	}

	if v := q.Get("q"); v != "" {
		filters.Search = &v
	}

	dir := store.SortAsc
	if lq.Dir == "desc" {
		dir = store.SortDesc
	}

	notes, total, err := h.svc.ListNotes(r.Context(), principal(r), filters,
		store.Sort{Field: store.SortField(lq.Sort), Dir: dir},
		store.Page{Number: lq.Page, PerPage: lq.PerPage})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: total})
}

// dateRange parses a pair of unix-second bounds. Both or neither must be
// present. Reports ok=false after writing the error response.
func dateRange(w http.ResponseWriter, from, to string) (*store.DateRange, bool) {
	if from == "" && to == "" {
		return nil, true
	}
	start, err1 := strconv.ParseInt(from, 10, 64)
	end, err2 := strconv.ParseInt(to, 10, 64)
	if err1 != nil || err2 != nil || end < start {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid date range"))
		return nil, false
	}
	return &store.DateRange{Start: start, End: end}, true
}

// AttachTag handles POST /notes/{noteID}/tags/{tagID}.
func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	noteID, ok1 := pathID(r, "noteID")
	tagID, ok2 := pathID(r, "tagID")
	if !ok1 || !ok2 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.svc.AttachTag(r.Context(), principal(r), noteID, tagID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DetachTag handles DELETE /notes/{noteID}/tags/{tagID}.
func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	noteID, ok1 := pathID(r, "noteID")
	tagID, ok2 := pathID(r, "tagID")
	if !ok1 || !ok2 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return
	}
	if err := h.svc.DetachTag(r.Context(), principal(r), noteID, tagID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTag handles POST /tags.
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.svc.CreateTag(r.Context(), principal(r), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

// ListTags handles GET /tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.ListTags(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

// UpdateTag handles PUT /tags/{id}.
func (h *Handler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id"))
		return
	}
	var req TagRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tag, err := h.svc.UpdateTag(r.Context(), principal(r), id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag handles DELETE /tags/{id}.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid tag id"))
		return
	}
	if err := h.svc.DeleteTag(r.Context(), principal(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetShelf handles GET /shelf.
func (h *Handler) GetShelf(w http.ResponseWriter, r *http.Request) {
	shelf, err := h.svc.GetShelf(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}

// UpdateShelf handles PUT /shelf.
func (h *Handler) UpdateShelf(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ShelfRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	shelf, err := h.svc.UpdateShelf(r.Context(), principal(r), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}

// ClearShelf handles POST /shelf/clear.
func (h *Handler) ClearShelf(w http.ResponseWriter, r *http.Request) {
	shelf, err := h.svc.ClearShelf(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, shelf)
}

// ConvertShelf handles POST /shelf/convert.
func (h *Handler) ConvertShelf(w http.ResponseWriter, r *http.Request) {
	var req ConvertShelfRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.svc.ConvertShelfToNote(r.Context(), principal(r), req.Title, req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}
