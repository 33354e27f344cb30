package middleware

import (
	"net/http"
	"sync"
	"time"

	"comanda/internal/store"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per authenticated tenant using the tenant's
// configured rate and burst.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*cachedLimiter
	ttl      time.Duration
	now      func() time.Time
}

// Option configures a RateLimiter.
type Option func(*RateLimiter)

// WithTTL sets how long a tenant's limiter is kept before it is rebuilt from
// the tenant's current settings.
func WithTTL(ttl time.Duration) Option {
	return func(rl *RateLimiter) { rl.ttl = ttl }
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt time.Time
}

// NewRateLimiter returns a limiter with a five minute TTL unless overridden.
func NewRateLimiter(opts ...Option) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[uuid.UUID]*cachedLimiter),
		ttl:      5 * time.Minute,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Middleware must run after AuthMiddleware or BridgeAuth.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant, ok := TenantFromContext(r.Context())
			if !ok {
				writeError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// RateLimit=0 means unlimited
			if tenant.RateLimit > 0 && !rl.limiter(tenant).Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) limiter(tenant *store.Tenant) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if cached, ok := rl.limiters[tenant.ID]; ok && now.Before(cached.expiresAt) {
		return cached.limiter
	}

	burst := tenant.RateLimitBurst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(tenant.RateLimit), burst)
	rl.limiters[tenant.ID] = &cachedLimiter{limiter: limiter, expiresAt: now.Add(rl.ttl)}
	return limiter
}
