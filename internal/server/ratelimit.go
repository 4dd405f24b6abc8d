package server

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientLimiter pairs a token-bucket limiter with the last time it was used,
// so an idle client's limiter can be garbage collected instead of leaking.
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool hands out one rate.Limiter per remote address, backing the
// per-client back-pressure the service surface applies independently to
// /query and /documents/upload.
type limiterPool struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	perMin   int
	burst    int
}

func newLimiterPool(perMin int) *limiterPool {
	if perMin <= 0 {
		perMin = 60
	}
	burst := perMin / 4
	if burst < 1 {
		burst = 1
	}
	p := &limiterPool{clients: make(map[string]*clientLimiter), perMin: perMin, burst: burst}
	go p.gc()
	return p
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(float64(p.perMin)/60.0), p.burst)}
		p.clients[key] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

func (p *limiterPool) gc() {
	for {
		time.Sleep(10 * time.Minute)
		cutoff := time.Now().Add(-30 * time.Minute)
		p.mu.Lock()
		for k, c := range p.clients {
			if c.lastSeen.Before(cutoff) {
				delete(p.clients, k)
			}
		}
		p.mu.Unlock()
	}
}

// RateLimit returns Gin middleware applying a per-remote-address token
// bucket that holds up to perMin/4 requests (at least one) and refills at
// perMin per minute.
// Every response carries X-RateLimit-Limit; once the bucket is empty the
// request gets 429 with Retry-After. No X-RateLimit-Remaining or
// X-RateLimit-Reset header is set. The query and upload endpoints each get
// their own pool with a different perMin.
func RateLimit(perMin int) gin.HandlerFunc {
	pool := newLimiterPool(perMin)
	return func(c *gin.Context) {
		limiter := pool.get(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(perMin))
		if !limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "rate limit exceeded",
				"detail":    "too many requests, slow down",
				"timestamp": time.Now().UTC(),
			})
			return
		}
		c.Next()
	}
}
