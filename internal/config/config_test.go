package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	if _, err := Load(); err == nil || err.Error() != "DB_DSN obrigatório" {
		t.Fatalf("expected DB_DSN error, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DSN", "postgres://localhost/balcao")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("ALLOW_ORIGINS", " https://balcao.org.br , *.balcao.org.br ,")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.JWTAccessTTL != 8*time.Hour {
		t.Fatalf("unexpected access ttl %s", cfg.JWTAccessTTL)
	}
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "*.balcao.org.br" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
	if cfg.RateLimit.Burst != 20 {
		t.Fatalf("unexpected burst %d", cfg.RateLimit.Burst)
	}
}

func TestLoadClientDefaults(t *testing.T) {
	t.Setenv("BALCAO_ENDPOINT", "https://api.balcao.org.br/api")
	for _, key := range []string{
		"BALCAO_HEALTH_URL", "BALCAO_ATTEMPTS", "BALCAO_BACKOFF", "BALCAO_BACKOFF_BASE",
		"BALCAO_BACKOFF_MAX", "BALCAO_ENCODING", "BALCAO_SESSION_STORE", "BALCAO_SESSION_KEY",
		"BALCAO_SESSION_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadClient()
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if cfg.HealthURL != "https://api.balcao.org.br/health" {
		t.Fatalf("unexpected health url %q", cfg.HealthURL)
	}
	if cfg.Attempts != 3 || cfg.Backoff.Policy != BackoffExponential {
		t.Fatalf("unexpected retry config %+v", cfg)
	}
	if cfg.SessionTimeout != 8*time.Hour {
		t.Fatalf("unexpected session timeout %s", cfg.SessionTimeout)
	}
	if cfg.Session.Key != DefaultSessionKey {
		t.Fatalf("unexpected session key %q", cfg.Session.Key)
	}
}

func TestLoadClientRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"BALCAO_ATTEMPTS":    "0",
		"BALCAO_BACKOFF":     "linear",
		"BALCAO_ENCODING":    "xml",
		"BALCAO_BACKOFF_MAX": "10ms",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("BALCAO_ENDPOINT", "https://api.balcao.org.br/api")
			t.Setenv(key, value)
			if _, err := LoadClient(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestPermissionTable(t *testing.T) {
	perms := DefaultCatalog().Permissions

	if !perms.Allows("voluntario", PermCreateTicket) {
		t.Fatal("voluntário deveria criar chamados")
	}
	if perms.Allows("VOLUNTARIO", PermUpdateTicket) {
		t.Fatal("voluntário não deveria atualizar chamados")
	}
	if !perms.Allows("COORDENADOR_GERAL", PermDeleteTicket) {
		t.Fatal("coordenação geral deveria excluir chamados")
	}
	if perms.Allows("COORDENADOR_LOCAL", PermDeleteTicket) {
		t.Fatal("coordenação local não deveria excluir chamados")
	}
	if perms.Allows("DESCONHECIDO", PermViewTickets) {
		t.Fatal("papel desconhecido não deveria ter permissões")
	}
}

func TestLoadCatalogOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalogo.json")
	body := `{"regions":[{"name":"Litoral","churches":["Igreja Praia"]}],"categories":["Saúde"]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if len(catalog.Regions) != 1 || catalog.Regions[0].Name != "Litoral" {
		t.Fatalf("unexpected regions %+v", catalog.Regions)
	}
	if !catalog.HasCategory("saúde") || catalog.HasCategory("Jurídico") {
		t.Fatalf("unexpected categories %v", catalog.Categories)
	}
	if len(catalog.Permissions) == 0 {
		t.Fatal("permissions should keep defaults")
	}
}
