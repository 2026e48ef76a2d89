package server

import (
	"net/http"

	"github.com/rs/zerolog"

	httperrors "github.com/triviaclash/platform/pkg/http/errors"
)

// Recoverer maps unexpected panics to a generic internal-error response so a
// single faulty request cannot take down the handler goroutine pool.
func Recoverer(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error().
						Interface("panic", rec).
						Str("path", r.URL.Path).
						Msg("request handler panicked")
					httperrors.RespondInternalError(w, "Internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
