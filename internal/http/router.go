package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/action"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	httpmiddleware "github.com/wgnrfrancis/ArimateiaService-sub000/internal/http/middleware"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

const maxBodyBytes = 1 << 20

// Dispatcher é satisfeito por *action.Dispatcher.
type Dispatcher interface {
	Handle(ctx context.Context, contentType string, body []byte) protocol.Envelope
	Dispatch(ctx context.Context, fields map[string]any) protocol.Envelope
}

// Check verifica uma dependência para /ready.
type Check func(ctx context.Context) error

// Options reúne o que o roteador precisa além do despachante.
type Options struct {
	AllowOrigins []string
	RateLimit    config.RateLimitConfig
	Checks       map[string]Check
}

// Handler expõe o endpoint único de ações e as sondas de saúde.
type Handler struct {
	dispatcher Dispatcher
	checks     map[string]Check
}

// NewRouter devolve o roteador configurado.
func NewRouter(dispatcher Dispatcher, jwt *auth.JWTManager, opts Options) http.Handler {
	h := &Handler{dispatcher: dispatcher, checks: opts.Checks}
	limiter := httpmiddleware.NewActorLimiter(opts.RateLimit)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Actor(jwt))
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(opts.AllowOrigins))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	r.Group(func(api chi.Router) {
		api.Use(limiter.Handler)

		api.Post("/", h.Action)
		api.Post("/api", h.Action)
		api.Get("/api", h.QueryAction)
	})

	return r
}

// Action executa a ação descrita no corpo.
func (h *Handler) Action(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, protocol.CodeInvalidPayload, "corpo excede o limite")
			return
		}
		WriteError(w, http.StatusBadRequest, protocol.CodeInvalidPayload, "corpo ilegível")
		return
	}
	WriteEnvelope(w, http.StatusOK, h.dispatcher.Handle(r.Context(), r.Header.Get("Content-Type"), body))
}

// QueryAction aceita ações de leitura via query string (?action=...).
func (h *Handler) QueryAction(w http.ResponseWriter, r *http.Request) {
	WriteEnvelope(w, http.StatusOK, h.dispatcher.Dispatch(r.Context(), action.FormFields(r.URL.Query())))
}

// Health responde se o processo está de pé.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida as dependências configuradas (Postgres, Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failures := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"ready":    false,
			"failures": failures,
		})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
