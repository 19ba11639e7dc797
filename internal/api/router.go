package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/munin/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced; every route
// additionally requires the caller to identify a principal.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(PrincipalMiddleware)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{noteID}/tags/{tagID}", h.AttachTag)
	r.Delete("/notes/{noteID}/tags/{tagID}", h.DetachTag)

	// Tags.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Put("/tags/{id}", h.UpdateTag)
	r.Delete("/tags/{id}", h.DeleteTag)

	// Shelf.
	r.Get("/shelf", h.GetShelf)
	r.Put("/shelf", h.UpdateShelf)
	r.Post("/shelf/clear", h.ClearShelf)
	r.Post("/shelf/convert", h.ConvertShelf)

	// Attachments.
	r.Post("/attachments", ah.Upload)
	r.Get("/attachments/{hash}", ah.Download)
	r.Delete("/attachments/{id}", ah.Delete)

	return r
}
