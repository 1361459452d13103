package session

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/orchestrator"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

type stubSubmitter struct {
	result  orchestrator.Result
	action  string
	payload map[string]any
}

func (s *stubSubmitter) Submit(_ context.Context, action string, payload map[string]any) orchestrator.Result {
	s.action = action
	s.payload = payload
	return s.result
}

func loginOK() orchestrator.Result {
	return orchestrator.Result{OK: true, Data: map[string]any{
		"success": true,
		"user":    map[string]any{"id": "U1", "name": "A", "role": "VOLUNTARIO"},
		"token":   "tok",
	}}
}

func newTestManager(sub Submitter, store Store, now time.Time) *Manager {
	m := NewManager(sub, store, 8*time.Hour, config.DefaultCatalog().Permissions, zerolog.Nop())
	m.now = func() time.Time { return now }
	return m
}

func TestLoginCreatesSession(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	sub := &stubSubmitter{result: loginOK()}
	store := &MemoryStore{}
	m := newTestManager(sub, store, now)

	user, err := m.Login(context.Background(), " A@B.org ", "x")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if sub.action != protocol.ActionLogin || sub.payload["email"] != "a@b.org" {
		t.Fatalf("unexpected submission %s %v", sub.action, sub.payload)
	}
	if user.Name != "A" || m.CurrentUser().Name != "A" || !m.IsSessionValid() {
		t.Fatalf("unexpected session state %+v", user)
	}
	if !m.HasPermission(config.PermCreateTicket) || m.HasPermission(config.PermDeleteTicket) {
		t.Fatal("unexpected permissions for VOLUNTARIO")
	}

	rec, _ := store.Load(context.Background())
	if rec == nil || rec.IssuedAt != now.UnixMilli() || rec.User.ID != "U1" || rec.Token != "tok" {
		t.Fatalf("unexpected persisted record %+v", rec)
	}

	ident, ok := m.Identity()
	if !ok || ident.ID != "U1" || ident.Email != "a@b.org" || ident.Token != "tok" {
		t.Fatalf("unexpected identity %+v", ident)
	}
}

func TestLoginFailureKeepsPreviousSession(t *testing.T) {
	now := time.Now()
	sub := &stubSubmitter{result: loginOK()}
	m := newTestManager(sub, &MemoryStore{}, now)
	if _, err := m.Login(context.Background(), "a@b.org", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}

	sub.result = orchestrator.Result{Error: orchestrator.ErrServerRejected, Message: "credenciais inválidas"}
	_, err := m.Login(context.Background(), "b@b.org", "y")

	var oerr *orchestrator.Error
	if !errors.As(err, &oerr) || oerr.Kind != orchestrator.ErrServerRejected {
		t.Fatalf("expected server rejected, got %v", err)
	}
	if m.CurrentUser() == nil || m.CurrentUser().ID != "U1" {
		t.Fatal("previous session should be kept")
	}
}

func TestLoginRejectsLocally(t *testing.T) {
	sub := &stubSubmitter{result: loginOK()}
	m := newTestManager(sub, nil, time.Now())

	if _, err := m.Login(context.Background(), "sem-arroba", "x"); err == nil {
		t.Fatal("expected invalid email error")
	}
	if _, err := m.Login(context.Background(), "a@b.org", ""); err == nil {
		t.Fatal("expected missing password error")
	}
	if sub.action != "" {
		t.Fatal("nothing should be submitted")
	}
}

func TestLoginWithoutUserIsMalformed(t *testing.T) {
	sub := &stubSubmitter{result: orchestrator.Result{OK: true, Data: map[string]any{"success": true}}}
	m := newTestManager(sub, nil, time.Now())

	_, err := m.Login(context.Background(), "a@b.org", "x")
	if !errors.Is(err, &orchestrator.Error{Kind: orchestrator.ErrMalformedResponse}) {
		t.Fatalf("expected malformed response, got %v", err)
	}
	if m.IsSessionValid() {
		t.Fatal("no session expected")
	}
}

func TestSessionExpiry(t *testing.T) {
	now := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	store := &MemoryStore{}
	m := newTestManager(&stubSubmitter{}, store, now)
	timeout := 8 * time.Hour

	rec := Record{
		User:     UserSnapshot{ID: "U9", Name: "Coord", Role: "COORDENADOR_GERAL"},
		IssuedAt: now.Add(-(timeout + time.Millisecond)).UnixMilli(),
	}
	_ = store.Save(context.Background(), rec)
	m.record = &rec

	if m.IsSessionValid() {
		t.Fatal("session past timeout must be invalid")
	}
	if m.HasPermission(config.PermViewTickets) || m.CurrentUser() != nil {
		t.Fatal("expired session must not grant permissions")
	}
	if got, _ := store.Load(context.Background()); got != nil {
		t.Fatal("expired session should be removed from the store")
	}

	rec.IssuedAt = now.Add(-timeout + time.Millisecond).UnixMilli()
	m.record = &rec
	if !m.IsSessionValid() {
		t.Fatal("session just inside the timeout must be valid")
	}
}

func TestRestoreAndLogout(t *testing.T) {
	now := time.Now()
	store := NewFileStore(t.TempDir(), config.DefaultSessionKey)
	ctx := context.Background()

	first := newTestManager(&stubSubmitter{result: loginOK()}, store, now)
	if _, err := first.Login(ctx, "a@b.org", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if filepath.Base(store.Path()) != "balcao_sessao.json" {
		t.Fatalf("unexpected path %s", store.Path())
	}

	second := newTestManager(&stubSubmitter{}, store, now.Add(time.Hour))
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if second.CurrentUser() == nil || second.CurrentUser().ID != "U1" {
		t.Fatal("session should survive restarts")
	}

	if err := second.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if second.IsSessionValid() {
		t.Fatal("logout should clear the session")
	}
	if rec, err := store.Load(ctx); err != nil || rec != nil {
		t.Fatalf("store should be empty, got %+v %v", rec, err)
	}

	late := newTestManager(&stubSubmitter{}, store, now.Add(9*time.Hour))
	_ = store.Save(ctx, Record{User: UserSnapshot{ID: "U1"}, IssuedAt: now.UnixMilli()})
	if err := late.Restore(ctx); err != nil || late.IsSessionValid() {
		t.Fatalf("expired record should not be restored: %v", err)
	}
}

type stubRedis struct {
	values map[string]string
	ttl    time.Duration
}

func (s *stubRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	s.values[key] = value.(string)
	s.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := s.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (s *stubRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := s.values[k]; ok {
			delete(s.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisStore(t *testing.T) {
	stub := &stubRedis{values: map[string]string{}}
	store := &RedisStore{redis: stub, key: config.DefaultSessionKey, ttl: 8 * time.Hour}
	ctx := context.Background()

	if rec, err := store.Load(ctx); err != nil || rec != nil {
		t.Fatalf("expected empty store, got %+v %v", rec, err)
	}
	if err := store.Save(ctx, Record{User: UserSnapshot{ID: "U1", Name: "A"}, IssuedAt: 1700000000000}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if stub.ttl != 8*time.Hour {
		t.Fatalf("unexpected ttl %s", stub.ttl)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(stub.values[config.DefaultSessionKey]), &raw); err != nil {
		t.Fatalf("persisted value: %v", err)
	}
	if _, ok := raw["user"]; !ok || raw["issuedAt"] != float64(1700000000000) {
		t.Fatalf("unexpected persisted shape %v", raw)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(stub.values) != 0 {
		t.Fatal("key should be deleted")
	}
}

type loginTransport struct {
	bodies []map[string]any
}

func (l *loginTransport) Do(_ context.Context, req *orchestrator.Request) (*orchestrator.Response, error) {
	l.bodies = append(l.bodies, req.Body)
	if req.Action == protocol.ActionLogin {
		return &orchestrator.Response{Status: 200, Body: []byte(`{"success": true, "user": {"id":"U1","name":"A","role":"VOLUNTARIO"}}`)}, nil
	}
	return &orchestrator.Response{Status: 200, Body: []byte(`{"success": true, "tickets": []}`)}, nil
}

func TestManagerFeedsOrchestratorIdentity(t *testing.T) {
	transport := &loginTransport{}
	client := orchestrator.New(config.DefaultClientConfig(), transport)
	m := NewManager(client, &MemoryStore{}, 8*time.Hour, config.DefaultCatalog().Permissions, zerolog.Nop())
	client.SetIdentitySource(m)
	ctx := context.Background()

	if res := client.Submit(ctx, protocol.ActionListTickets, nil); res.Error != orchestrator.ErrSessionExpired {
		t.Fatalf("expected session expired before login, got %+v", res)
	}
	if _, err := m.Login(ctx, "a@b.org", "x"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if res := client.Submit(ctx, protocol.ActionListTickets, nil); !res.OK {
		t.Fatalf("list: %+v", res)
	}

	last := transport.bodies[len(transport.bodies)-1]
	if last["actorId"] != "U1" || last["actorName"] != "A" {
		t.Fatalf("actor metadata missing: %v", last)
	}
}
