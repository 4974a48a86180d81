package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/middleware"
	"github.com/atinyakov/go-shortlink/internal/models"
)

type PatchHandler struct {
	service service.LinkServiceIface
	logger  *zap.Logger
}

func NewPatch(s service.LinkServiceIface, l *zap.Logger) *PatchHandler {
	return &PatchHandler{
		service: s,
		logger:  l,
	}
}

// UpdateLink handles PATCH requests renaming or editing an owned link.
func (h *PatchHandler) UpdateLink(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	userID, ok := middleware.UserIDFrom(req.Context())
	if !ok {
		writeAPIError(res, service.ErrUnauthorized)
		return
	}

	var request models.UpdateRequest
	if err := decodeJSONBody(res, req, &request); err != nil {
		writeDecodeError(res, err)
		return
	}

	err := h.service.Update(ctx, service.UpdateLinkInput{
		ID:    chi.URLParam(req, "id"),
		NewID: request.NewID,
		Title: request.Title,
		URL:   request.URL,
	}, userID)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}
