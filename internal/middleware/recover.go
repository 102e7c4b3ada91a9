package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
)

// Recover turns a panic into the standard JSON 500 envelope.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			zerolog.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			WriteError(w, r, &domain.Error{
				Kind: domain.KindInternal,
				Code: domain.CodeInternal,
				Err:  fmt.Errorf("panic: %v", rec),
			})
		}()
		next.ServeHTTP(w, r)
	})
}
