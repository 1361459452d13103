package auth

import (
	"context"
	"strings"
)

type contextKey string

const contextKeyActor contextKey = "actor"

// WithActor injeta as claims do usuário autenticado no contexto.
func WithActor(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKeyActor, claims)
}

// ActorFrom recupera as claims do contexto.
func ActorFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKeyActor).(*Claims)
	return claims, ok && claims != nil
}

// BearerToken extrai o token de um cabeçalho Authorization.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

// ContextFromHeader valida o Authorization, quando presente, e devolve o
// contexto com o ator. Tokens inválidos são ignorados: cada ação decide se
// exige sessão.
func (m *JWTManager) ContextFromHeader(ctx context.Context, header string) context.Context {
	token, ok := BearerToken(header)
	if !ok {
		return ctx
	}
	claims, err := m.ParseAndValidate(token)
	if err != nil {
		return ctx
	}
	return WithActor(ctx, claims)
}
