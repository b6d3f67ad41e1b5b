package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxTrackedIPs = 4096

// RateLimiterStore holds a map of IP addresses to their rate limiters. The
// map is bounded; when full, the least recently seen entry is dropped.
type RateLimiterStore struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	perMin   int
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiterStore creates a store allowing perMin requests per minute per
// client IP.
func NewRateLimiterStore(perMin int) *RateLimiterStore {
	if perMin <= 0 {
		perMin = 100
	}
	return &RateLimiterStore{
		limiters: make(map[string]*limiterEntry),
		perMin:   perMin,
	}
}

// getLimiter returns the rate limiter for a given IP, creating one if it doesn't exist.
func (s *RateLimiterStore) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.limiters[ip]
	if !exists {
		if len(s.limiters) >= maxTrackedIPs {
			s.evictOldestLocked()
		}
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.perMin)), s.perMin),
		}
		s.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (s *RateLimiterStore) evictOldestLocked() {
	var oldestIP string
	var oldest time.Time
	for ip, e := range s.limiters {
		if oldestIP == "" || e.lastSeen.Before(oldest) {
			oldestIP = ip
			oldest = e.lastSeen
		}
	}
	if oldestIP != "" {
		delete(s.limiters, oldestIP)
	}
}

// RateLimitMiddleware limits requests per IP address.
func RateLimitMiddleware(store *RateLimiterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()
		ip := getClientIP(c)
		limiter := store.getLimiter(ip)
		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded", zap.String("ip", ip))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
