package auth

import (
	"context"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)

	token, err := mgr.GenerateAccessToken("U1", "Ana", "ana@balcao.org", "SECRETARIA")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "U1" || claims.Name != "Ana" || claims.Role != "SECRETARIA" || claims.Email != "ana@balcao.org" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestAccessTokenRejected(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)
	token, err := mgr.GenerateAccessToken("U1", "Ana", "ana@balcao.org", "VOLUNTARIO")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)
	if _, err := other.ParseAndValidate(token); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	mgr.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestContextFromHeader(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour)
	token, _ := mgr.GenerateAccessToken("U7", "Bia", "bia@balcao.org", "VOLUNTARIO")

	ctx := mgr.ContextFromHeader(context.Background(), "bearer "+token)
	claims, ok := ActorFrom(ctx)
	if !ok || claims.Subject != "U7" {
		t.Fatalf("expected actor in context, got %+v %v", claims, ok)
	}

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer invalido"} {
		if _, ok := ActorFrom(mgr.ContextFromHeader(context.Background(), header)); ok {
			t.Errorf("header %q should not produce an actor", header)
		}
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := Hash("senha-segura")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ok, err := Verify("senha-segura", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got %v %v", ok, err)
	}
	ok, _ = Verify("outra", hash)
	if ok {
		t.Fatal("wrong password must not match")
	}
	if ok, _ := Verify("senha-segura", ""); ok {
		t.Fatal("empty hash must not match")
	}
}
