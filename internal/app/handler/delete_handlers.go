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

type DeleteHandler struct {
	service service.LinkServiceIface
	logger  *zap.Logger
}

func NewDelete(s service.LinkServiceIface, l *zap.Logger) *DeleteHandler {
	return &DeleteHandler{
		service: s,
		logger:  l,
	}
}

// DeleteLink handles DELETE requests removing an owned link.
func (h *DeleteHandler) DeleteLink(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	userID, ok := middleware.UserIDFrom(req.Context())
	if !ok {
		writeAPIError(res, service.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(ctx, chi.URLParam(req, "id"), userID); err != nil {
		writeAPIError(res, err)
		return
	}

	res.WriteHeader(http.StatusOK)
}
