package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests a key may make per Window.
	Max int
	// Window is the length of the sliding window.
	Window time.Duration
	// KeyFunc extracts the limiter key. Defaults to the client IP.
	KeyFunc func(*http.Request) string
	// TrustForwarded takes the default key from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustForwarded bool
	// Methods restricts limiting to the given HTTP methods. Empty means all.
	Methods []string
}

// window counts requests of one key in the current and previous fixed
// windows; the sliding estimate weights the previous count by its overlap.
type window struct {
	prev      float64
	curr      float64
	currStart time.Time
}

func (w *window) advance(now time.Time, size time.Duration) {
	elapsed := now.Sub(w.currStart)
	if elapsed < size {
		return
	}
	if elapsed < 2*size {
		w.prev = w.curr
	} else {
		w.prev = 0
	}
	w.curr = 0
	w.currStart = now.Truncate(size)
}

func (w *window) estimate(now time.Time, size time.Duration) float64 {
	overlap := 1 - now.Sub(w.currStart).Seconds()/size.Seconds()
	return w.prev*math.Max(overlap, 0) + w.curr
}

type rateLimiter struct {
	cfg     RateLimitConfig
	methods map[string]struct{}

	mu      sync.Mutex
	windows map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = remoteIP
		if cfg.TrustForwarded {
			cfg.KeyFunc = forwardedIP
		}
	}
	rl := &rateLimiter{
		cfg:     cfg,
		windows: make(map[string]*window),
	}
	if len(cfg.Methods) > 0 {
		rl.methods = make(map[string]struct{}, len(cfg.Methods))
		for _, m := range cfg.Methods {
			rl.methods[strings.ToUpper(m)] = struct{}{}
		}
	}
	return rl
}

func (rl *rateLimiter) applies(r *http.Request) bool {
	if rl.methods == nil {
		return true
	}
	_, ok := rl.methods[r.Method]
	return ok
}

// allow records a request for key and reports whether it fits the limit,
// together with the remaining budget and the end of the current window.
func (rl *rateLimiter) allow(key string, now time.Time) (remaining int, resetAt time.Time, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, found := rl.windows[key]
	if !found {
		w = &window{currStart: now}
		rl.windows[key] = w
	}
	w.advance(now, rl.cfg.Window)

	resetAt = w.currStart.Add(rl.cfg.Window)
	used := w.estimate(now, rl.cfg.Window)
	if used >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}
	w.curr++

	return max(int(float64(rl.cfg.Max)-used-1), 0), resetAt, true
}

// evict drops keys idle for at least two windows.
func (rl *rateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, w := range rl.windows {
		if now.Sub(w.currStart) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

func (rl *rateLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(2 * rl.cfg.Window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// RateLimit limits requests per key with a sliding window. Rejected requests
// get 429 with the API error body; every limited response carries the
// X-RateLimit-* headers. Idle keys are evicted until ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go rl.evictLoop(ctx)
	return rl.middleware
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.applies(r) {
			next.ServeHTTP(w, r)
			return
		}

		key := rl.cfg.KeyFunc(r)
		remaining, resetAt, ok := rl.allow(key, time.Now())

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !ok {
			retryAfter := max(time.Until(resetAt), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			zctx.From(r.Context()).Debug("Rate limited", zap.String("key", key))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// forwardedIP returns the first X-Forwarded-For entry, X-Real-IP, or the
// host part of RemoteAddr.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return remoteIP(r)
}

// remoteIP returns the host part of RemoteAddr.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
