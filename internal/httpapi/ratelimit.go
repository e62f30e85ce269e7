package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/erauner12/listsync/internal/auth"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// RateLimitInfo describes the per-subject limit of the admin API
type RateLimitInfo struct {
	WindowSeconds int `json:"windowSeconds"`
	MaxRequests   int `json:"maxRequests"` // per window
	Burst         int `json:"burst"`       // token bucket size
}

// DefaultRateLimit allows one request per second with small bursts
func DefaultRateLimit() RateLimitInfo {
	return RateLimitInfo{WindowSeconds: 60, MaxRequests: 60, Burst: 10}
}

type subjectLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per authenticated subject
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*subjectLimiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(cfg RateLimitInfo) *RateLimiter {
	limit := rate.Inf
	if cfg.WindowSeconds > 0 && cfg.MaxRequests > 0 {
		limit = rate.Limit(float64(cfg.MaxRequests) / float64(cfg.WindowSeconds))
	}
	rl := &RateLimiter{
		limiters: make(map[string]*subjectLimiter),
		limit:    limit,
		burst:    max(cfg.Burst, 1),
	}

	// Remove limiters of subjects that went quiet
	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.Prune(now.Add(-time.Hour))
	}
}

// Reserve takes a token for the subject. It returns how long to wait before
// retrying when none is available, and 0 when the request may proceed.
func (rl *RateLimiter) Reserve(subject string, now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	sl, ok := rl.limiters[subject]
	if !ok {
		sl = &subjectLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[subject] = sl
	}
	sl.lastSeen = now

	if sl.limiter.AllowN(now, 1) {
		return 0
	}
	res := sl.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	res.CancelAt(now)
	if delay <= 0 {
		delay = time.Second
	}
	return delay
}

// Prune drops limiters unused since before cutoff
func (rl *RateLimiter) Prune(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for subject, sl := range rl.limiters {
		if sl.lastSeen.Before(cutoff) {
			delete(rl.limiters, subject)
		}
	}
}

// RateLimitMiddleware returns a middleware that enforces rate limiting per subject.
// It must run after auth.Middleware.
func RateLimitMiddleware(cfg RateLimitInfo) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.Subject(r.Context())
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			if wait := limiter.Reserve(subject, time.Now()); wait > 0 {
				retryAfter := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				log.Warn().
					Str("sub", subject).
					Str("path", r.URL.Path).
					Int("retryAfter", retryAfter).
					Msg("Rate limit exceeded")

				writeError(w, r, http.StatusTooManyRequests,
					"Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
