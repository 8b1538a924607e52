package httpx

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MikeMC777/annoor-shop/internal/logger"
)

// RateLimiter throttles requests per client IP.
type RateLimiter struct {
	log     *logger.Logger
	limit   rate.Limit
	burst   int
	cleanup time.Duration

	mu      sync.Mutex
	clients map[string]*clientLimiter

	stopCh chan struct{}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows perMinute requests per client with the given burst.
// Idle clients are forgotten after twice the cleanup interval.
func NewRateLimiter(log *logger.Logger, perMinute, burst int, cleanup time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	rl := &RateLimiter{
		log:     log,
		limit:   rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
		cleanup: cleanup,
		clients: make(map[string]*clientLimiter),
		stopCh:  make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the background cleanup.
func (rl *RateLimiter) Stop() { close(rl.stopCh) }

// Middleware rejects with 429 once the caller's bucket is empty.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !rl.get(ip).Allow() {
			retry := 1
			if rl.limit > 0 {
				retry = max(1, int(math.Ceil(1.0/float64(rl.limit))))
			}
			rl.log.Warn("rate limit exceeded", "client", ip, "route", c.FullPath())
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Envelope{Message: "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	ttl := rl.cleanup * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, cl := range rl.clients {
		if now.Sub(cl.lastAccess) > ttl {
			delete(rl.clients, key)
		}
	}
}
