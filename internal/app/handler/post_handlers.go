package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/middleware"
	"github.com/atinyakov/go-shortlink/internal/models"
)

type PostHandler struct {
	service service.LinkServiceIface
	codec   service.KeyCodecIface
	auth    service.AuthIface
	logger  *zap.Logger
}

func NewPost(s service.LinkServiceIface, codec service.KeyCodecIface, auth service.AuthIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		service: s,
		codec:   codec,
		auth:    auth,
		logger:  l,
	}
}

// CreateLink handles POST requests creating an owned short link.
func (h *PostHandler) CreateLink(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	userID, ok := middleware.UserIDFrom(req.Context())
	if !ok {
		writeAPIError(res, service.ErrUnauthorized)
		return
	}

	var request models.CreateRequest
	if err := decodeJSONBody(res, req, &request); err != nil {
		writeDecodeError(res, err)
		return
	}

	link, err := h.service.Create(ctx, service.CreateLinkInput{
		ID:         request.ID,
		URL:        request.URL,
		Title:      request.Title,
		Enabled:    request.Enabled,
		ClickLimit: request.ClickLimit,
		Password:   request.Password,
		TimeOffset: request.TimeOffset,
	}, userID)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, toLinkResponse(*link))
}

// CreatePublicLink handles POST requests creating an anonymous short link.
func (h *PostHandler) CreatePublicLink(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	var request models.PublicCreateRequest
	if err := decodeJSONBody(res, req, &request); err != nil {
		writeDecodeError(res, err)
		return
	}

	link, err := h.service.PublicCreate(ctx, request.URL)
	if err != nil {
		writeAPIError(res, err)
		return
	}

	writeJSON(res, http.StatusCreated, models.PublicLinkResponse{ID: link.ID, URL: link.URL})
}

// CreateSession starts a session: it registers a user and sets the session
// cookie. This is the stand-in for an external login provider.
func (h *PostHandler) CreateSession(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	tokenString, userID, err := h.auth.BuildJWTString(ctx)
	if err != nil {
		h.logger.Error("building session token", zap.Error(err))
		writeAPIError(res, service.ErrInternal)
		return
	}

	http.SetCookie(res, &http.Cookie{
		Name:     "token",
		Value:    tokenString,
		Expires:  time.Now().Add(service.TokenExp),
		HttpOnly: true,
		Path:     "/",
	})

	writeJSON(res, http.StatusCreated, map[string]string{"userId": userID})
}

// IssueKey handles POST requests issuing an API key for the session user.
// The body is optional; {"intent":"new"} forces regeneration. The derived
// key is returned exactly once: repeat issuance without the regeneration
// intent yields only the issued sentinel.
func (h *PostHandler) IssueKey(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
	defer cancel()

	userID, ok := middleware.UserIDFrom(req.Context())
	if !ok {
		writeAPIError(res, service.ErrUnauthorized)
		return
	}

	var request models.KeyRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
		writeDecodeError(res, &malformedRequest{status: http.StatusBadRequest, msg: "Request body contains badly-formed JSON"})
		return
	}

	key, created, err := h.codec.Issue(ctx, userID, request.Intent == "new")
	if err != nil {
		h.logger.Error("issuing api key", zap.Error(err))
		writeAPIError(res, service.ErrInternal)
		return
	}

	if !created {
		writeJSON(res, http.StatusOK, models.KeyResponse{Issued: true})
		return
	}

	writeJSON(res, http.StatusCreated, models.KeyResponse{Key: key, Issued: true})
}
