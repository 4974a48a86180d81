package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-shortlink/internal/app/service"
)

// WithRecovery converts handler panics into the generic 500 error body. The
// panic value is logged; the response never carries internals.
func WithRecovery(log *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error("handler panic",
						zap.Any("panic", rec),
						zap.String("url", r.URL.String()),
					)
					writeError(w, service.ErrInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
