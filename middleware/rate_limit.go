package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/nilsrambow/amrum-be/utils"
)

// Counter counts hits of key within the current fixed window.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter keeps at most MaxKeys windows. Expired windows are evicted
// before a new key is admitted; when still full the oldest window is dropped.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow
	MaxKeys int
	Now     func() time.Time
}

func NewMemoryCounter(maxKeys int, now func() time.Time) *MemoryCounter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{windows: map[string]*memoryWindow{}, MaxKeys: maxKeys, Now: now}
}

func (m *MemoryCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()
	w, ok := m.windows[key]
	if ok && !now.Before(w.resetAt) {
		delete(m.windows, key)
		ok = false
	}
	if !ok {
		if len(m.windows) >= m.MaxKeys {
			m.evict(now)
		}
		w = &memoryWindow{resetAt: now.Add(window)}
		m.windows[key] = w
	}
	w.count++
	return w.count, nil
}

func (m *MemoryCounter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
			continue
		}
		if oldestKey == "" || w.resetAt.Before(oldest) {
			oldestKey, oldest = k, w.resetAt
		}
	}
	if len(m.windows) >= m.MaxKeys && oldestKey != "" {
		delete(m.windows, oldestKey)
	}
}

// Len reports the number of tracked windows.
func (m *MemoryCounter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// RedisCounter shares windows between instances with INCR + EXPIRE.
type RedisCounter struct {
	Client *redis.Client
	Prefix string
}

func NewRedisCounter(redisURL string) (*RedisCounter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisCounter{Client: redis.NewClient(opt), Prefix: "amrum:ratelimit:"}, nil
}

func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.Prefix + key
	pipe := r.Client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// RateLimit allows limit requests per client IP and window. Counter errors
// let the request through.
func RateLimit(counter Counter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		n, err := counter.Hit(c.Request.Context(), c.ClientIP(), window)
		if err != nil {
			log.Printf("⚠️ rate limiter unavailable: %v", err)
			c.Next()
			return
		}
		remaining := int64(limit) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if n > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			utils.JSONError(c, http.StatusTooManyRequests, "error.rateLimited", "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
