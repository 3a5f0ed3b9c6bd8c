package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"jokeledger/observability"
)

const visitorIdleTTL = 5 * time.Minute

// RateLimit describes a token bucket. Tokens overrides the per request cost
// for "METHOD /path" keys; everything else costs DefaultTokens.
type RateLimit struct {
	RatePerSecond float64
	Burst         int
	DefaultTokens int
	Tokens        map[string]int
}

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimiter struct {
	logger   *slog.Logger
	limits   map[string]RateLimit
	mu       sync.Mutex
	visitors map[string]*rateEntry
	pruned   time.Time
	clockNow func() time.Time
}

func NewRateLimiter(limits map[string]RateLimit, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		logger:   logger,
		limits:   limits,
		visitors: make(map[string]*rateEntry),
		clockNow: time.Now,
	}
}

func (r *RateLimiter) Middleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			limit, ok := r.limits[key]
			if !ok {
				next.ServeHTTP(w, req)
				return
			}
			identifier := key + "|" + clientID(req)
			now := r.clockNow()
			limiter := r.obtainLimiter(identifier, limit, now)
			if !limiter.AllowN(now, limit.cost(req)) {
				observability.ModuleMetrics().RecordThrottle(key, "rate_limit")
				r.logger.Debug("rate limit exceeded", "route", key, "client", clientID(req))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func (l RateLimit) cost(req *http.Request) int {
	if tokens, ok := l.Tokens[req.Method+" "+req.URL.Path]; ok && tokens > 0 {
		return tokens
	}
	if l.DefaultTokens > 0 {
		return l.DefaultTokens
	}
	return 1
}

func (r *RateLimiter) obtainLimiter(id string, cfg RateLimit, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(now)
	if entry, ok := r.visitors[id]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	r.visitors[id] = &rateEntry{limiter: limiter, lastSeen: now}
	return limiter
}

func (r *RateLimiter) pruneLocked(now time.Time) {
	if now.Sub(r.pruned) < time.Minute {
		return
	}
	r.pruned = now
	for id, entry := range r.visitors {
		if now.Sub(entry.lastSeen) > visitorIdleTTL {
			delete(r.visitors, id)
		}
	}
}

func clientID(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return "key:" + key
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if parsed := net.ParseIP(first); parsed != nil {
			return parsed.String()
		}
		return first
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
