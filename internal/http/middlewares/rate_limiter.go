package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/roadwatch/internal/observability"
	"github.com/gin-gonic/gin"
)

// WindowStore counts hits per key in a fixed window. redisclient.Client
// satisfies it for a limit shared across instances.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}

type RateLimiter struct {
	store  WindowStore
	window time.Duration
	limit  int64
	prom   *observability.Prom
	log    *slog.Logger
}

func NewRateLimiter(store WindowStore, limit int, window time.Duration, prom *observability.Prom, log *slog.Logger) *RateLimiter {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{
		store:  store,
		limit:  int64(limit),
		window: window,
		prom:   prom,
		log:    log,
	}
}

// RateLimiterMiddleware enforces the limit per derived key. A failing store
// lets the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)

		if key == "" {
			// fallback to IP if key cannot be derived
			key = clientIP(c)
		}

		count, resetIn, err := rl.store.Hit(c.Request.Context(), key, rl.window)
		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate limit store unavailable", "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			retryAfter := int(resetIn.Round(time.Second).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			rl.prom.ObserveRateLimited(route)

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// KeyByIP rate limits by client address.
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryWindowStore keeps per-process windows. Expired buckets are dropped
// lazily on the next hit for the same key and swept every few hundred hits.
type MemoryWindowStore struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	hits    int
	now     func() time.Time
}

type clientBucket struct {
	count     int64
	windowEnd time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

func (m *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.hits++
	if m.hits%512 == 0 {
		m.sweep(now)
	}

	b, ok := m.clients[key]

	if !ok || !now.Before(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(window)}
		m.clients[key] = b
	}

	b.count++

	return b.count, b.windowEnd.Sub(now), nil
}

func (m *MemoryWindowStore) sweep(now time.Time) {
	for k, b := range m.clients {
		if !now.Before(b.windowEnd) {
			delete(m.clients, k)
		}
	}
}
