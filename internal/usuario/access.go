package usuario

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessKeyPrefix = "balcao:acesso:"

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// AccessTracker guarda o último acesso de cada usuário no Redis.
type AccessTracker struct {
	redis redisCommander
	ttl   time.Duration
}

// NewAccessTracker cria o rastreador; ttl define por quanto tempo o registro é mantido.
func NewAccessTracker(client *redis.Client, ttl time.Duration) *AccessTracker {
	return &AccessTracker{redis: client, ttl: ttl}
}

// Touch grava o instante do acesso.
func (a *AccessTracker) Touch(ctx context.Context, userID string, at time.Time) error {
	return a.redis.Set(ctx, accessKeyPrefix+userID, at.UTC().Format(time.RFC3339), a.ttl).Err()
}

// LastAccess devolve o último acesso registrado, se existir.
func (a *AccessTracker) LastAccess(ctx context.Context, userID string) (time.Time, bool, error) {
	raw, err := a.redis.Get(ctx, accessKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}
