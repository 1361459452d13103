package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

// Recover garante resposta sanitizada em caso de panic.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("panic recuperado")
				writeError(w, http.StatusInternalServerError, protocol.CodeInternal, "erro interno")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
