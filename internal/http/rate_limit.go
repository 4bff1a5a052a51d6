package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL       = time.Hour
	limiterSweepInterval = 5 * time.Minute
)

// clientLimiters keeps one token bucket per client IP. Idle buckets are swept during
// lookups, at most once per limiterSweepInterval.
type clientLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		buckets:   make(map[string]*clientBucket),
		limit:     rate.Limit(rps),
		burst:     burst,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// reserve takes a token for client. When none is available it returns how long the client
// should wait, without consuming anything.
func (l *clientLimiters) reserve(client string) (time.Duration, bool) {
	now := l.now()

	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		for key, bucket := range l.buckets {
			if now.Sub(bucket.lastSeen) >= limiterIdleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}
	bucket, ok := l.buckets[client]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = bucket
	}
	bucket.lastSeen = now
	l.mu.Unlock()

	r := bucket.limiter.ReserveN(now, 1)
	if !r.OK() {
		return time.Duration(math.MaxInt64), false
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return delay, false
	}
	return 0, true
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// RateLimitMiddleware enforces a token bucket of rps with the given burst per client IP.
// Rejected requests get 429 with a Retry-After header in whole seconds.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	limiters := newClientLimiters(rps, burst)

	return func(c *gin.Context) {
		client := c.ClientIP()
		wait, ok := limiters.reserve(client)
		if ok {
			c.Next()
			return
		}

		retryAfter := max(int(math.Ceil(wait.Seconds())), 1)
		logger.Debug("rate limit exceeded",
			slog.String("client_ip", client),
			slog.Int("retry_after", retryAfter))

		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Too many requests. Please retry after the specified delay.",
		})
	}
}
