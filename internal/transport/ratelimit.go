package transport

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const tenantIdleTimeout = 3 * time.Minute

// TenantRateLimiter keeps one token bucket per tenant.
type TenantRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	tenants   map[string]*tenantLimiter
	lastSweep time.Time
	now       func() time.Time
}

type tenantLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewTenantRateLimiter allows rps requests per second per tenant with the given burst.
func NewTenantRateLimiter(rps float64, burst int) *TenantRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &TenantRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		tenants: make(map[string]*tenantLimiter),
		now:     time.Now,
	}
}

func (rl *TenantRateLimiter) allow(tenantID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > tenantIdleTimeout {
		for id, t := range rl.tenants {
			if now.Sub(t.lastSeen) > tenantIdleTimeout {
				delete(rl.tenants, id)
			}
		}
		rl.lastSweep = now
	}

	t, ok := rl.tenants[tenantID]
	if !ok {
		t = &tenantLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.tenants[tenantID] = t
	}
	t.lastSeen = now
	return t.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the tenant's limit with 429.
// It must run after the middleware that sets the tenant.
func (rl *TenantRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, _ := TenantFromContext(r.Context())
		if !rl.allow(tenantID) {
			retry := 1
			if rl.limit > 0 && rl.limit < 1 {
				retry = int(math.Ceil(1 / float64(rl.limit)))
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
