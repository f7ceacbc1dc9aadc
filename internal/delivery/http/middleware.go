package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/verdictapp/backend/internal/logging"
	"github.com/verdictapp/backend/internal/metrics"
)

const requestIDHeader = "X-Request-ID"

// CORSMiddleware handles CORS for the web and extension clients
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, "+requestIDHeader)
			c.Writer.Header().Set("Access-Control-Expose-Headers", requestIDHeader)
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
			c.Writer.Header().Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list.
// An entry ending in * matches any origin with that prefix.
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		if strings.HasSuffix(allowed, "*") {
			if strings.HasPrefix(origin, strings.TrimSuffix(allowed, "*")) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// RequestIDMiddleware propagates or assigns a request ID and stores it in the request context
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = logging.GenerateRequestID()
		}

		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware writes one structured access log line per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := logging.Ctx(c.Request.Context())
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("HTTP request")
	}
}

// RecoveryMiddleware recovers from panics and answers 500
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Ctx(c.Request.Context()).Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("Recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// MetricsMiddleware records request counts and latencies by route
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.APIRequestsTotal.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// ipRateLimiter hands out one token bucket per client IP
type ipRateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*visitor
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastPrune time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(perMinute, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		limiters:  make(map[string]*visitor),
		limit:     rate.Limit(float64(perMinute) / 60),
		burst:     burst,
		idleTTL:   10 * time.Minute,
		lastPrune: time.Now(),
	}
}

func (l *ipRateLimiter) get(ip string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > time.Minute {
		for key, v := range l.limiters {
			if now.Sub(v.lastSeen) > l.idleTTL {
				delete(l.limiters, key)
			}
		}
		l.lastPrune = now
	}

	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// RateLimitMiddleware limits each client IP to perMinute requests with the given burst.
// perMinute <= 0 disables limiting.
func RateLimitMiddleware(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPRateLimiter(perMinute, burst)
	return func(c *gin.Context) {
		now := time.Now()
		reservation := limiter.get(c.ClientIP(), now).ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
