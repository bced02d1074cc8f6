/*
Package limiter provides rate limiting keyed by client IP address.

Each address gets its own token bucket (rate.Limiter). A background sweep drops buckets
that have refilled completely so idle addresses do not accumulate.
*/
package limiter

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"santorini/internal/pkg/errs"
	"santorini/internal/pkg/logx"
	"santorini/internal/pkg/resp"
)

// sweepInterval is how often idle buckets are dropped.
const sweepInterval = 3 * time.Minute

// IPRateLimiter hands out one token bucket per client IP address.
type IPRateLimiter struct {
	// mu protects the limits map.
	mu sync.RWMutex

	// limits maps a client IP to its bucket.
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second.
	r rate.Limit

	// b is the bucket size.
	b int

	// stop ends the sweep goroutine.
	stop     chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter returns a limiter allowing r events per second with burst b per IP,
// and starts its sweep goroutine. Call Stop to end it.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
		stop:   make(chan struct{}),
	}

	go i.sweepLoop()

	return i
}

// GetLimiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[ip] = limiter
	}

	return limiter
}

// Allow consumes one token from the bucket of the request's client IP.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// Len returns the number of tracked addresses.
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return len(i.limits)
}

// Stop ends the sweep goroutine. It is safe to call more than once.
func (i *IPRateLimiter) Stop() {
	i.stopOnce.Do(func() { close(i.stop) })
}

func (i *IPRateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			removed := i.sweep(now)
			logx.Debug("Rate limiter sweep finished.", "removed", removed, "remaining", i.Len())
		case <-i.stop:
			return
		}
	}
}

// sweep drops buckets that are full at now and returns how many were removed.
func (i *IPRateLimiter) sweep(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}

	return removed
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			logx.Warn("Request rejected: rate limit exceeded.", "ip", logx.AnonymizeIP(ClientIP(r)))
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the host part of the request's remote address.
// chi's RealIP middleware, when installed, has already replaced it with the forwarded address.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}
