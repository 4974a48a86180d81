package service

import (
	"net/http"

	"github.com/atinyakov/go-shortlink/internal/models"
)

// The typed errors every operation can return. Handlers map them to HTTP
// responses verbatim; anything that is not an *models.APIError becomes a 500
// with a caller-safe message.
var (
	// ErrUnauthorized covers every credential failure: missing, malformed and
	// non-matching keys or sessions are deliberately indistinguishable to
	// callers.
	ErrUnauthorized = &models.APIError{Code: http.StatusUnauthorized, Message: "unauthorized"}

	ErrIDTooShort = &models.APIError{Code: http.StatusBadRequest, Message: "short link id must be at least 4 characters long"}

	ErrIDUnderscore = &models.APIError{Code: http.StatusBadRequest, Message: "short link id cannot start with an underscore"}

	ErrInvalidURL = &models.APIError{Code: http.StatusBadRequest, Message: "destination is not a valid absolute url"}

	ErrClickLimit = &models.APIError{Code: http.StatusBadRequest, Message: "click limit is not a whole number"}

	ErrBlocked = &models.APIError{Code: http.StatusNotAcceptable, Message: "url not acceptable or is blocked"}

	ErrLinkExists = &models.APIError{Code: http.StatusConflict, Message: "short link already exists"}

	ErrLinkNotFound = &models.APIError{Code: http.StatusNotFound, Message: "short link not found"}

	ErrSpam = &models.APIError{Code: http.StatusConflict, Message: "url marked as spam for the next 24 hours"}

	// ErrInternal carries no internals; the cause is logged, never returned.
	ErrInternal = &models.APIError{Code: http.StatusInternalServerError, Message: "please try again"}
)
