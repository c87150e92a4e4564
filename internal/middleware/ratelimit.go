package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wagateway/gateway-server-go/internal/audit"
	apperrors "github.com/wagateway/gateway-server-go/internal/errors"
	"github.com/wagateway/gateway-server-go/internal/httputil"
)

const (
	maxEntries = 10000
	entryTTL   = 5 * time.Minute
)

// Limiter is a sliding-window counter keyed by caller.
type Limiter interface {
	Check(ctx context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64)
}

type rateLimitEntry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// RateLimiter keeps windows in process memory.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	store  map[string]*rateLimitEntry
}

func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		store:  make(map[string]*rateLimitEntry),
	}
}

// Sweep drops windows idle for longer than entryTTL and returns how many
// were removed.
func (rl *RateLimiter) Sweep(_ context.Context) (int64, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	var removed int64
	for key, entry := range rl.store {
		if now.Sub(entry.lastAccess) > entryTTL {
			delete(rl.store, key)
			removed++
		}
	}
	return removed, nil
}

// evict trims a fifth of the store once it grows past maxEntries.
func (rl *RateLimiter) evict() {
	if len(rl.store) <= maxEntries {
		return
	}
	n := len(rl.store) / 5
	for key := range rl.store {
		if n == 0 {
			break
		}
		delete(rl.store, key)
		n--
	}
}

func (rl *RateLimiter) Check(_ context.Context, key string, limit int) (allowed bool, remaining int, resetAt int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.evict()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	entry, exists := rl.store[key]
	if !exists {
		entry = &rateLimitEntry{lastAccess: now}
		rl.store[key] = entry
	}
	entry.lastAccess = now

	filtered := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			filtered = append(filtered, ts)
		}
	}
	entry.timestamps = filtered

	if len(entry.timestamps) > 0 {
		resetAt = entry.timestamps[0].Add(rl.window).Unix()
	} else {
		resetAt = now.Add(rl.window).Unix()
	}

	if len(entry.timestamps) >= limit {
		return false, 0, resetAt
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, limit - len(entry.timestamps), resetAt
}

// RateLimitMiddleware limits requests per client IP.
type RateLimitMiddleware struct {
	limiter Limiter
	limit   int
	prefix  string
}

func NewRateLimitMiddleware(limiter Limiter, limit int, prefix string) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		prefix:  prefix,
	}
}

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		allowed, remaining, resetAt := m.limiter.Check(r.Context(), m.prefix+":"+ip, m.limit)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(m.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt, 10))

		if !allowed {
			log.Warn().Str("ip", ip).Str("path", r.URL.Path).Msg("rate limit exceeded")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimitExceed})

			secondsLeft := resetAt - time.Now().Unix()
			if secondsLeft < 1 {
				secondsLeft = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(secondsLeft, 10))
			httputil.WriteError(w, apperrors.RateLimitExceeded())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port. chi's RealIP has already applied proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
