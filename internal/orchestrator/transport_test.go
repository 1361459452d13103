package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

func TestHTTPTransportJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			t.Errorf("missing bearer token")
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "echo": body["action"]})
	}))
	defer srv.Close()

	cfg := config.DefaultClientConfig()
	cfg.EndpointURL = srv.URL
	client := New(cfg, NewHTTPTransport(cfg, srv.Client()), WithClock(newFakeClock()), WithIdentity(voluntaria))

	res := client.Submit(context.Background(), protocol.ActionListTickets, map[string]any{"region": "Centro"})
	if !res.OK || res.String("echo") != protocol.ActionListTickets {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestHTTPTransportForm(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		got = r.PostForm
		_, _ = io.WriteString(w, `{"success": true}`)
	}))
	defer srv.Close()

	cfg := config.DefaultClientConfig()
	cfg.EndpointURL = srv.URL
	cfg.Encoding = config.EncodingForm
	client := New(cfg, NewHTTPTransport(cfg, srv.Client()), WithClock(newFakeClock()), WithIdentity(voluntaria))

	res := client.Submit(context.Background(), protocol.ActionListTickets, map[string]any{"limit": 25, "status": "ABERTO"})
	if !res.OK {
		t.Fatalf("unexpected result %+v", res)
	}
	if got.Get("limit") != "25" || got.Get("status") != "ABERTO" || got.Get("action") != protocol.ActionListTickets {
		t.Fatalf("unexpected form %v", got)
	}
}

func TestHTTPTransportStatusAndOpaque(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.DefaultClientConfig()
	cfg.EndpointURL = srv.URL
	cfg.Attempts = 1
	client := New(cfg, NewHTTPTransport(cfg, srv.Client()), WithClock(newFakeClock()), WithIdentity(voluntaria))
	if res := client.Submit(context.Background(), protocol.ActionCreateTicket, nil); res.Error != ErrConnectionFailure || res.Message != "HTTP 502" {
		t.Fatalf("unexpected result %+v", res)
	}

	cfg.Opaque = true
	opaque := New(cfg, NewHTTPTransport(cfg, srv.Client()), WithClock(newFakeClock()), WithIdentity(voluntaria))
	if res := opaque.Submit(context.Background(), protocol.ActionCreateTicket, nil); !res.OK || res.Data["submitted"] != true {
		t.Fatalf("opaque mode should report success, got %+v", res)
	}
}

func TestMonitorRestoresConnectivity(t *testing.T) {
	var healthy atomic.Bool
	health := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer health.Close()

	transport := &stubTransport{fn: replyWith(`{"success": true}`)}
	client := newTestClient(transport, newFakeClock())
	monitor := NewMonitor(client, health.URL, 0, health.Client(), zerolog.Nop())
	ctx := context.Background()

	monitor.RunOnce(ctx)
	if client.Online() {
		t.Fatal("503 should mark the client offline")
	}
	client.Submit(ctx, protocol.ActionCreateTicket, map[string]any{"seq": 1})

	healthy.Store(true)
	report := monitor.RunOnce(ctx)
	if !client.Online() || report.Sent != 1 || transport.count() != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestMonitorStartStop(t *testing.T) {
	health := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer health.Close()

	client := newTestClient(&stubTransport{fn: replyWith(`{}`)}, newFakeClock())
	monitor := NewMonitor(client, health.URL, 0, health.Client(), zerolog.Nop())

	monitor.Start(context.Background())
	monitor.Start(context.Background())
	monitor.Stop()
}
