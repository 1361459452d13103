package config

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Políticas de espera entre tentativas.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Codificações aceitas para o corpo das requisições.
const (
	EncodingJSON = "json"
	EncodingForm = "form"
)

// Tipos de armazenamento da sessão local.
const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// DefaultSessionKey é a chave conhecida onde a sessão é persistida.
const DefaultSessionKey = "balcao_sessao"

// ClientConfig reúne parâmetros do orquestrador de requisições.
type ClientConfig struct {
	EndpointURL        string
	HealthURL          string
	Attempts           int
	Backoff            BackoffConfig
	AttemptTimeout     time.Duration
	CacheTTL           time.Duration
	SessionTimeout     time.Duration
	ClientOrigin       string
	Version            string
	Encoding           string
	Opaque             bool
	QueueOnUnreachable bool
	ProbeInterval      time.Duration
	Session            SessionStoreConfig
	DeadLetterPath     string
}

// BackoffConfig descreve a espera entre tentativas.
type BackoffConfig struct {
	Policy string
	Base   time.Duration
	Max    time.Duration
}

// SessionStoreConfig define onde a sessão do operador fica guardada.
type SessionStoreConfig struct {
	Kind     string
	Dir      string
	RedisURL string
	Key      string
}

// DefaultClientConfig devolve os valores padrão do cliente sem endpoint.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Attempts: 3,
		Backoff: BackoffConfig{
			Policy: BackoffExponential,
			Base:   time.Second,
			Max:    10 * time.Second,
		},
		AttemptTimeout:     30 * time.Second,
		CacheTTL:           2 * time.Minute,
		SessionTimeout:     8 * time.Hour,
		ClientOrigin:       "balcao-cli",
		Version:            "2.0.0",
		Encoding:           EncodingJSON,
		QueueOnUnreachable: true,
		ProbeInterval:      30 * time.Second,
		Session: SessionStoreConfig{
			Kind: SessionStoreFile,
			Key:  DefaultSessionKey,
		},
	}
}

// LoadClient carrega a configuração do cliente a partir do ambiente.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := DefaultClientConfig()

	cfg.EndpointURL = strings.TrimSpace(getEnv("BALCAO_ENDPOINT", ""))
	if cfg.EndpointURL == "" {
		return nil, errors.New("BALCAO_ENDPOINT obrigatório")
	}
	endpoint, err := url.Parse(cfg.EndpointURL)
	if err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, errors.New("BALCAO_ENDPOINT inválido")
	}

	cfg.HealthURL = strings.TrimSpace(getEnv("BALCAO_HEALTH_URL", ""))
	if cfg.HealthURL == "" {
		cfg.HealthURL = (&url.URL{Scheme: endpoint.Scheme, Host: endpoint.Host, Path: "/health"}).String()
	}

	if cfg.Attempts, err = parseIntEnv("BALCAO_ATTEMPTS", cfg.Attempts); err != nil {
		return nil, err
	}
	if cfg.Attempts < 1 {
		return nil, errors.New("BALCAO_ATTEMPTS inválido")
	}

	cfg.Backoff.Policy = strings.ToLower(strings.TrimSpace(getEnv("BALCAO_BACKOFF", cfg.Backoff.Policy)))
	if cfg.Backoff.Policy != BackoffFixed && cfg.Backoff.Policy != BackoffExponential {
		return nil, errors.New("BALCAO_BACKOFF inválido")
	}
	if cfg.Backoff.Base, err = parseDurationEnv("BALCAO_BACKOFF_BASE", cfg.Backoff.Base); err != nil {
		return nil, err
	}
	if cfg.Backoff.Max, err = parseDurationEnv("BALCAO_BACKOFF_MAX", cfg.Backoff.Max); err != nil {
		return nil, err
	}
	if cfg.Backoff.Base < 0 || cfg.Backoff.Max < cfg.Backoff.Base {
		return nil, errors.New("BALCAO_BACKOFF_MAX inválido")
	}

	if cfg.AttemptTimeout, err = parseDurationEnv("BALCAO_ATTEMPT_TIMEOUT", cfg.AttemptTimeout); err != nil {
		return nil, err
	}
	if cfg.AttemptTimeout <= 0 {
		return nil, errors.New("BALCAO_ATTEMPT_TIMEOUT inválido")
	}
	if cfg.CacheTTL, err = parseDurationEnv("BALCAO_CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTimeout, err = parseDurationEnv("BALCAO_SESSION_TIMEOUT", cfg.SessionTimeout); err != nil {
		return nil, err
	}
	if cfg.SessionTimeout <= 0 {
		return nil, errors.New("BALCAO_SESSION_TIMEOUT inválido")
	}

	cfg.ClientOrigin = strings.TrimSpace(getEnv("BALCAO_CLIENT_ORIGIN", cfg.ClientOrigin))
	cfg.Version = strings.TrimSpace(getEnv("BALCAO_VERSION", cfg.Version))

	cfg.Encoding = strings.ToLower(strings.TrimSpace(getEnv("BALCAO_ENCODING", cfg.Encoding)))
	if cfg.Encoding != EncodingJSON && cfg.Encoding != EncodingForm {
		return nil, errors.New("BALCAO_ENCODING inválido")
	}

	if cfg.Opaque, err = parseBoolEnv("BALCAO_OPAQUE", cfg.Opaque); err != nil {
		return nil, err
	}
	if cfg.QueueOnUnreachable, err = parseBoolEnv("BALCAO_QUEUE_ON_UNREACHABLE", cfg.QueueOnUnreachable); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval, err = parseDurationEnv("BALCAO_PROBE_INTERVAL", cfg.ProbeInterval); err != nil {
		return nil, err
	}
	if cfg.ProbeInterval <= 0 {
		return nil, errors.New("BALCAO_PROBE_INTERVAL inválido")
	}

	cfg.Session.Kind = strings.ToLower(strings.TrimSpace(getEnv("BALCAO_SESSION_STORE", cfg.Session.Kind)))
	switch cfg.Session.Kind {
	case SessionStoreFile, SessionStoreRedis, SessionStoreMemory:
	default:
		return nil, errors.New("BALCAO_SESSION_STORE inválido")
	}
	cfg.Session.Key = strings.TrimSpace(getEnv("BALCAO_SESSION_KEY", cfg.Session.Key))
	if cfg.Session.Key == "" {
		cfg.Session.Key = DefaultSessionKey
	}
	cfg.Session.RedisURL = strings.TrimSpace(getEnv("BALCAO_SESSION_REDIS_URL", ""))
	if cfg.Session.Kind == SessionStoreRedis && cfg.Session.RedisURL == "" {
		return nil, errors.New("BALCAO_SESSION_REDIS_URL obrigatório")
	}
	cfg.Session.Dir = strings.TrimSpace(getEnv("BALCAO_SESSION_DIR", ""))
	if cfg.Session.Dir == "" {
		cfg.Session.Dir = defaultSessionDir()
	}

	cfg.DeadLetterPath = strings.TrimSpace(getEnv("BALCAO_DEADLETTER_PATH", ""))

	return &cfg, nil
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "balcao")
	}
	return ".balcao"
}
