package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"gastos/internal/cache"
)

// Limiter allows a fixed number of requests per client per window. The
// per-client counters live in an LRU cache so idle clients age out.
type Limiter struct {
	clients           *cache.LRUCache[window]
	requestsPerMinute int
	now               func() time.Time
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// MaxClients bounds how many client counters are tracked at once.
	MaxClients int
	// IdleTTL is how long a client counter survives without requests.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		MaxClients:        10000,
		IdleTTL:           10 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	defaults := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = defaults.RequestsPerMinute
	}
	if config.MaxClients <= 0 {
		config.MaxClients = defaults.MaxClients
	}
	if config.IdleTTL < time.Minute {
		config.IdleTTL = defaults.IdleTTL
	}

	return &Limiter{
		clients:           cache.NewLRUCache[window](config.MaxClients, config.IdleTTL),
		requestsPerMinute: config.RequestsPerMinute,
		now:               time.Now,
	}
}

// Allow checks if a request from the given client should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	now := rl.now()
	w := rl.clients.Update(clientIP, func(w window, found bool) window {
		if !found || now.Sub(w.start) >= time.Minute {
			return window{start: now, requests: 1}
		}
		w.requests++
		return w
	})
	return w.requests <= rl.requestsPerMinute
}

// RetryAfter is the number of seconds until the client's window resets.
func (rl *Limiter) RetryAfter(clientIP string) int {
	w, ok := rl.clients.Get(clientIP)
	if !ok {
		return 0
	}
	left := time.Minute - rl.now().Sub(w.start)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.Size()
}

// CleanExpired drops idle client counters; it lets a cache.Manager sweep the
// limiter.
func (rl *Limiter) CleanExpired() int {
	return rl.clients.CleanExpired()
}

// Middleware creates HTTP middleware for rate limiting
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := extractIP(r)

			if !rl.Allow(clientIP) {
				w.Header().Set("Retry-After", strconv.Itoa(max(rl.RetryAfter(clientIP), 1)))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
