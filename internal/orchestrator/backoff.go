package orchestrator

import (
	"context"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

// Backoff calcula a espera após a tentativa n (n >= 1).
type Backoff interface {
	Delay(attempt int) time.Duration
}

// FixedBackoff espera sempre o mesmo intervalo.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Delay(int) time.Duration { return b.Interval }

// ExponentialBackoff dobra a espera a cada tentativa até Max.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// NewBackoff escolhe a política configurada.
func NewBackoff(cfg config.BackoffConfig) Backoff {
	if cfg.Policy == config.BackoffFixed {
		return FixedBackoff{Interval: cfg.Base}
	}
	return ExponentialBackoff{Base: cfg.Base, Max: cfg.Max}
}

// Clock abstrai o tempo para que esperas possam ser simuladas.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock usa o relógio real.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
