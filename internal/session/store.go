package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

// Store persiste o registro de sessão sob uma chave conhecida.
// Load devolve nil, nil quando não há sessão gravada.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// NewStore escolhe o armazenamento configurado.
func NewStore(cfg config.ClientConfig) (Store, error) {
	switch cfg.Session.Kind {
	case config.SessionStoreMemory:
		return &MemoryStore{}, nil
	case config.SessionStoreRedis:
		opts, err := redis.ParseURL(cfg.Session.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return NewRedisStore(redis.NewClient(opts), cfg.Session.Key, cfg.SessionTimeout), nil
	default:
		return NewFileStore(cfg.Session.Dir, cfg.Session.Key), nil
	}
}

// FileStore grava a sessão em <dir>/<chave>.json.
type FileStore struct {
	path string
}

func NewFileStore(dir, key string) *FileStore {
	return &FileStore{path: filepath.Join(dir, key+".json")}
}

// Path devolve o arquivo usado.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (*Record, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ler sessão: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("sessão corrompida: %w", err)
	}
	return &rec, nil
}

func (s *FileStore) Save(_ context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("criar diretório da sessão: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("gravar sessão: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remover sessão: %w", err)
	}
	return nil
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisStore compartilha a sessão entre terminais via Redis; a chave expira
// junto com a sessão.
type RedisStore struct {
	redis redisCommander
	key   string
	ttl   time.Duration
}

func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{redis: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	raw, err := s.redis.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("sessão corrompida: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, s.key, string(raw), s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.redis.Del(ctx, s.key).Err()
}

// MemoryStore mantém a sessão apenas no processo.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

func (s *MemoryStore) Load(context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	rec := *s.rec
	return &rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	s.rec = &rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.rec = nil
	s.mu.Unlock()
	return nil
}
