package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type recordingDispatcher struct {
	contentType string
	body        string
	fields      map[string]any
	actor       string
}

func (d *recordingDispatcher) Handle(ctx context.Context, contentType string, body []byte) protocol.Envelope {
	d.contentType = contentType
	d.body = string(body)
	if claims, ok := auth.ActorFrom(ctx); ok {
		d.actor = claims.Subject
	}
	return protocol.Success(map[string]any{"echo": true})
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, fields map[string]any) protocol.Envelope {
	d.fields = fields
	return protocol.Failure(protocol.CodeUnknownAction, "ação desconhecida")
}

func newTestRouter(opts Options) (http.Handler, *recordingDispatcher, *auth.JWTManager) {
	if opts.RateLimit.Burst == 0 {
		opts.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}
	}
	jwt := auth.NewJWTManager(testSecret, time.Hour)
	dispatcher := &recordingDispatcher{}
	return NewRouter(dispatcher, jwt, opts), dispatcher, jwt
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) protocol.Envelope {
	t.Helper()
	var env protocol.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestActionEndpointForwardsBodyAndActor(t *testing.T) {
	router, dispatcher, jwt := newTestRouter(Options{})
	token, err := jwt.GenerateAccessToken("user-1", "Maria", "maria@balcao.org.br", "SECRETARIA")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"action":"listTickets"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); !env.OK() {
		t.Fatalf("unexpected envelope %v", env)
	}
	if dispatcher.actor != "user-1" {
		t.Fatalf("actor not injected: %q", dispatcher.actor)
	}
	if dispatcher.body != `{"action":"listTickets"}` || dispatcher.contentType != "application/json" {
		t.Fatalf("unexpected forwarded request %q %q", dispatcher.contentType, dispatcher.body)
	}
}

func TestActionEndpointIgnoresInvalidToken(t *testing.T) {
	router, dispatcher, _ := newTestRouter(Options{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer lixo")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if dispatcher.actor != "" {
		t.Fatalf("invalid token should not produce an actor, got %q", dispatcher.actor)
	}
}

func TestQueryActionUsesQueryString(t *testing.T) {
	router, dispatcher, _ := newTestRouter(Options{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api?action=inexistente&limit=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.OK() || env.Code() != protocol.CodeUnknownAction {
		t.Fatalf("unexpected envelope %v", env)
	}
	if dispatcher.fields["action"] != "inexistente" || dispatcher.fields["limit"] != "5" {
		t.Fatalf("unexpected fields %v", dispatcher.fields)
	}
}

func TestActionEndpointRejectsOversizedBody(t *testing.T) {
	router, _, _ := newTestRouter(Options{})

	body := strings.NewReader(`{"x":"` + strings.Repeat("a", maxBodyBytes) + `"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api", body))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Code() != protocol.CodeInvalidPayload {
		t.Fatalf("unexpected envelope %v", env)
	}
}

func TestReadyReportsFailures(t *testing.T) {
	router, _, _ := newTestRouter(Options{Checks: map[string]Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("conexão recusada") },
	}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "conexão recusada") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _, _ := newTestRouter(Options{AllowOrigins: []string{"*.balcao.org.br"}})

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://painel.balcao.org.br")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://painel.balcao.org.br" {
		t.Fatalf("unexpected allow origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://balcao.org.br")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("root domain should not match wildcard, got %q", got)
	}
}

func TestRateLimitUsesEnvelope(t *testing.T) {
	router, _, _ := newTestRouter(Options{RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}})

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{}`))
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: status %d, want %d", i, rec.Code, want)
		}
		if want == http.StatusTooManyRequests {
			env := decodeEnvelope(t, rec)
			if env.OK() || env.Code() != "RATE_LIMIT" {
				t.Fatalf("unexpected envelope %v", env)
			}
		}
	}
}
