package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/time/rate"

	"symposium/internal/dto"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client IP a burst of requests per window,
// refilled evenly across the window.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	window    time.Duration
	message   string
	now       func() time.Time
	lastSweep time.Time
}

func NewRateLimiter(requests int, window time.Duration, message string) *RateLimiter {
	if requests <= 0 {
		requests = 1
	}
	if message == "" {
		message = dto.TooManyRequests
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(requests)),
		burst:    requests,
		window:   window,
		message:  message,
		now:      time.Now,
	}
}

func (l *RateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep drops clients idle for longer than a window. It runs at most once
// per window. Callers hold mu.
func (l *RateLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.window {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) Middleware() ginext.HandlerFunc {
	return func(c *ginext.Context) {
		ok, wait := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			dto.ErrorResponse(c, http.StatusTooManyRequests, l.message)
			return
		}
		c.Next()
	}
}
