package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/middleware"
)

type GetHandler struct {
	service service.LinkServiceIface
	logger  *zap.Logger
	baseURL string
}

func NewGet(s service.LinkServiceIface, baseURL string, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
		baseURL: baseURL,
	}
}

// Links handles GET requests for the caller's short links.
func (h *GetHandler) Links(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	userID, ok := middleware.UserIDFrom(req.Context())
	if !ok {
		writeAPIError(res, service.ErrUnauthorized)
		return
	}

	links, err := h.service.List(ctx, userID)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, toLinkResponses(links))
}

// PublicLinks handles GET requests for the anonymous link listing.
func (h *GetHandler) PublicLinks(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	links, err := h.service.PublicList(ctx)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	writeJSON(res, http.StatusOK, toPublicLinkResponses(links))
}

// Redirect resolves a short identifier and redirects to its destination.
func (h *GetHandler) Redirect(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	id := chi.URLParam(req, "id")
	h.logger.Debug("resolving short link", zap.String("id", id))

	link, err := h.service.Resolve(ctx, id)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	res.Header().Set("Location", link.URL)
	res.WriteHeader(http.StatusTemporaryRedirect)
}

// PingDB reports storage health.
func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	if err := h.service.PingContext(ctx); err != nil {
		writeAPIError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}

// Docs serves the static capability description of the key-based API.
func (h *GetHandler) Docs(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, http.StatusOK, map[string]interface{}{
		"endpoint": h.baseURL + "/api/v1",
		"headers": map[string]string{
			"authorization": "Bearer <API Key>",
		},
		"methods": map[string]interface{}{
			"GET": map[string]string{
				"description": "Returns all short links for the user",
			},
			"POST": map[string]interface{}{
				"description": "Creates a new short link",
				"body":        map[string]string{"url": "https://example.com"},
			},
			"PATCH": map[string]interface{}{
				"description": "Renames or edits a short link",
				"body":        map[string]string{"newId": "my-link", "url": "https://example.com"},
			},
			"DELETE": map[string]string{
				"description": "Deletes a short link",
			},
		},
	})
}
