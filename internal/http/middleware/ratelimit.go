package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

const bucketIdle = 10 * time.Minute

// ActorLimiter limita requisições por operador autenticado. Chamadas sem
// sessão dividem o balde do IP de origem.
type ActorLimiter struct {
	rps   rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewActorLimiter cria o limitador a partir da configuração do servidor.
func NewActorLimiter(cfg config.RateLimitConfig) *ActorLimiter {
	return &ActorLimiter{
		rps:     rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Handler responde 429 com envelope RATE_LIMIT quando o balde esvazia.
func (l *ActorLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(actorKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "RATE_LIMIT", "limite de requisições excedido")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *ActorLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now
	if now.Sub(l.lastSweep) > bucketIdle {
		for k, other := range l.buckets {
			if now.Sub(other.seen) > bucketIdle {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

func (l *ActorLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func actorKey(r *http.Request) string {
	if subject := GetSubject(r); subject != "" {
		return "user:" + subject
	}
	return "ip:" + clientIP(r)
}

// clientIP lê RemoteAddr, já reescrito por chimiddleware.RealIP.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
