package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/zerofarias/varo-pos-sub000/internal/apierror"

	"github.com/gin-gonic/gin"
)

// Fixed-window request limiting, kept in process memory. That is enough for
// a single-node POS backend; a shared Redis window would be the next step if
// the API ever runs replicated.

const limiterPurgeInterval = 5 * time.Minute

type rateWindow struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

// ipLimiter counts requests per client IP in fixed windows. Each limiter
// owns its map so the login limiter and the API-wide limiter never share
// state.
type ipLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	limit   int
	window  time.Duration
}

func newIPLimiter(limit int, window time.Duration) *ipLimiter {
	l := &ipLimiter{
		windows: make(map[string]*rateWindow),
		limit:   limit,
		window:  window,
	}
	go l.purgeLoop()
	return l
}

// allow records one request for ip and reports whether it fits the current
// window, along with when that window resets.
func (l *ipLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	w, ok := l.windows[ip]
	if !ok {
		w = &rateWindow{}
		l.windows[ip] = w
	}
	l.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if now.After(w.resetAt) {
		w.count = 0
		w.resetAt = now.Add(l.window)
	}
	w.count++
	return w.count <= l.limit, w.resetAt
}

// purgeLoop drops windows for IPs that stopped sending requests so the map
// does not grow without bound.
func (l *ipLimiter) purgeLoop() {
	ticker := time.NewTicker(limiterPurgeInterval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		for ip, w := range l.windows {
			w.mu.Lock()
			if now.After(w.resetAt) {
				delete(l.windows, ip)
			}
			w.mu.Unlock()
		}
		l.mu.Unlock()
	}
}

// RateLimiter caps requests per client IP across the whole API.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	l := newIPLimiter(limit, window)
	return func(c *gin.Context) {
		ok, resetAt := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", resetAt.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeForbidden, "too many requests, retry shortly"))
			return
		}
		c.Next()
	}
}

// LoginRateLimiter is the tighter limiter in front of the credential
// endpoint: 20 attempts per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	l := newIPLimiter(20, time.Minute)
	return func(c *gin.Context) {
		ok, _ := l.allow(c.ClientIP())
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(apierror.CodeForbidden, "too many login attempts, retry in a minute"))
			return
		}
		c.Next()
	}
}
