// Package server wires the HTTP routes to their handlers and middleware.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/app/handler"
	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/middleware"
)

// Init builds the router. The /api/v1 group authenticates with bearer API
// keys, /api/links and /api/keys with the session cookie; both groups reach
// the same handlers, which only see the resolved user id.
func Init(baseURL string, logger *zap.Logger, links service.LinkServiceIface, codec service.KeyCodecIface, auth service.AuthIface) *chi.Mux {
	getHandler := handler.NewGet(links, baseURL, logger)
	postHandler := handler.NewPost(links, codec, auth, logger)
	patchHandler := handler.NewPatch(links, logger)
	deleteHandler := handler.NewDelete(links, logger)

	r := chi.NewRouter()
	r.Use(middleware.WithRecovery(logger))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithGzip)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/docs", getHandler.Docs)

		r.Group(func(r chi.Router) {
			r.Use(middleware.WithAPIKey(codec))
			r.Get("/", getHandler.Links)
			r.Post("/", postHandler.CreateLink)
			r.Patch("/{id}", patchHandler.UpdateLink)
			r.Delete("/{id}", deleteHandler.DeleteLink)
		})
	})

	r.Route("/api/links", func(r chi.Router) {
		r.Use(middleware.WithSession(auth))
		r.Get("/", getHandler.Links)
		r.Post("/", postHandler.CreateLink)
		r.Patch("/{id}", patchHandler.UpdateLink)
		r.Delete("/{id}", deleteHandler.DeleteLink)
	})

	r.With(middleware.WithSession(auth)).Post("/api/keys", postHandler.IssueKey)
	r.Post("/session", postHandler.CreateSession)

	r.Get("/public", getHandler.PublicLinks)
	r.Post("/public", postHandler.CreatePublicLink)

	r.Get("/ping", getHandler.PingDB)
	r.Get("/{id}", getHandler.Redirect)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Short link id is required", http.StatusBadRequest)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Route not found", http.StatusNotFound)
	})

	return r
}
