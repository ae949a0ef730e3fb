package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestMemoryCounterWindows(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	c := NewMemoryCounter(10, clk.Now)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := c.Hit(ctx, "1.2.3.4", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	clk.Advance(time.Minute)
	n, _ := c.Hit(ctx, "1.2.3.4", time.Minute)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCounterStaysBounded(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	c := NewMemoryCounter(3, clk.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = c.Hit(ctx, fmt.Sprintf("old-%d", i), time.Minute)
	}
	clk.Advance(2 * time.Minute)
	_, _ = c.Hit(ctx, "fresh", time.Minute)
	assert.Equal(t, 1, c.Len())

	for i := 0; i < 50; i++ {
		clk.Advance(time.Second)
		_, _ = c.Hit(ctx, fmt.Sprintf("client-%d", i), time.Minute)
		assert.LessOrEqual(t, c.Len(), 3)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	r := gin.New()
	r.Use(RateLimit(NewMemoryCounter(100, clk.Now), 2, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "error.rateLimited", gjson.Get(w.Body.String(), "error.code").String())
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	clk.Advance(time.Minute)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitFailsOpenWhenRedisIsDown(t *testing.T) {
	counter := &RedisCounter{
		Client: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1}),
		Prefix: "test:",
	}
	defer counter.Client.Close()

	r := gin.New()
	r.Use(RateLimit(counter, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNewRedisCounterRejectsBadURL(t *testing.T) {
	_, err := NewRedisCounter("not a url")
	assert.Error(t, err)
}

func TestAdminAuth(t *testing.T) {
	const secret = "test-secret"
	r := gin.New()
	r.GET("/admin", AdminAuth(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("admin_id"), "email": c.GetString("admin_email")})
	})

	call := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	tok, _, err := IssueAdminToken(secret, 7, "staff@example.com", time.Hour, time.Now())
	require.NoError(t, err)
	w := call("Bearer " + tok)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), gjson.Get(w.Body.String(), "id").Int())
	assert.Equal(t, "staff@example.com", gjson.Get(w.Body.String(), "email").String())

	assert.Equal(t, http.StatusUnauthorized, call("").Code)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer garbage").Code)

	forged, _, err := IssueAdminToken("other-secret", 7, "staff@example.com", time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call("Bearer "+forged).Code)

	expired, _, err := IssueAdminToken(secret, 7, "staff@example.com", time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	w = call("Bearer " + expired)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "error.unauthorized", gjson.Get(w.Body.String(), "error.code").String())
}

func TestIssueAdminTokenNeedsSecret(t *testing.T) {
	_, _, err := IssueAdminToken("", 1, "a@b.c", time.Hour, time.Now())
	assert.Error(t, err)
}

func TestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(Logger())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
}
