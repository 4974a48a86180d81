// Package handler contains the HTTP handlers for the short-link API. It
// decodes JSON bodies, translates typed service errors into the uniform
// {"error":{...}} body, and keeps identity resolution to the middleware
// layer: every handler reads the already-resolved user id from the request
// context.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/go-shortlink/internal/app/service"
	"github.com/atinyakov/go-shortlink/internal/models"
	"github.com/atinyakov/go-shortlink/internal/storage"
)

// malformedRequest represents an error with a malformed HTTP request body.
type malformedRequest struct {
	status int
	msg    string
}

func (mr *malformedRequest) Error() string {
	return mr.msg
}

// decodeJSONBody decodes a JSON request body into the given destination
// struct, translating the common JSON decoding failures into client-facing
// messages.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	ct := r.Header.Get("Content-Type")
	if ct != "" {
		mediaType := strings.ToLower(strings.TrimSpace(strings.Split(ct, ";")[0]))
		if mediaType != "application/json" {
			msg := "Content-Type header is not application/json"
			return &malformedRequest{status: http.StatusUnsupportedMediaType, msg: msg}
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(&dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxError):
			msg := fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.Is(err, io.ErrUnexpectedEOF):
			msg := "Request body contains badly-formed JSON"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.As(err, &unmarshalTypeError):
			msg := fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)", unmarshalTypeError.Field, unmarshalTypeError.Offset)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			msg := fmt.Sprintf("Request body contains unknown field %s", fieldName)
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case errors.Is(err, io.EOF):
			msg := "Request body must not be empty"
			return &malformedRequest{status: http.StatusBadRequest, msg: msg}

		case err.Error() == "http: request body too large":
			msg := "Request body must not be larger than 1MB"
			return &malformedRequest{status: http.StatusRequestEntityTooLarge, msg: msg}

		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		msg := "Request body must only contain a single JSON object"
		return &malformedRequest{status: http.StatusBadRequest, msg: msg}
	}

	return nil
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError translates any error into the error body. Typed errors keep
// their status and message; everything else becomes the generic 500.
func writeAPIError(w http.ResponseWriter, err error) {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		apiErr = service.ErrInternal
	}
	writeJSON(w, apiErr.Code, models.NewErrorResponse(apiErr))
}

// writeDecodeError translates decodeJSONBody failures.
func writeDecodeError(w http.ResponseWriter, err error) {
	var mr *malformedRequest
	if errors.As(err, &mr) {
		writeJSON(w, mr.status, models.NewErrorResponse(&models.APIError{Code: mr.status, Message: mr.msg}))
		return
	}
	writeAPIError(w, err)
}

// toLinkResponse converts a stored link to its wire representation. The
// password hash is never serialized.
func toLinkResponse(l storage.ShortLink) models.LinkResponse {
	return models.LinkResponse{
		ID:         l.ID,
		URL:        l.URL,
		Title:      l.Title,
		Enabled:    l.Enabled,
		ClickLimit: l.ClickLimit,
		TimeOffset: l.TimeOffset,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  l.UpdatedAt.Format(time.RFC3339),
	}
}

func toLinkResponses(ls []storage.ShortLink) []models.LinkResponse {
	out := make([]models.LinkResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, toLinkResponse(l))
	}
	return out
}

func toPublicLinkResponses(ls []storage.ShortLink) []models.PublicLinkResponse {
	out := make([]models.PublicLinkResponse, 0, len(ls))
	for _, l := range ls {
		out = append(out, models.PublicLinkResponse{ID: l.ID, URL: l.URL})
	}
	return out
}
