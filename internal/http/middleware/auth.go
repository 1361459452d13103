package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

// Actor injeta no contexto o usuário do token Bearer, quando válido.
// Requisições anônimas seguem adiante; cada ação decide se exige sessão.
func Actor(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := jwtManager.ContextFromHeader(r.Context(), r.Header.Get("Authorization"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSubject recupera o id do usuário autenticado.
func GetSubject(r *http.Request) string {
	claims, ok := auth.ActorFrom(r.Context())
	if !ok {
		return ""
	}
	return claims.Subject
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(protocol.Failure(code, message))
}
