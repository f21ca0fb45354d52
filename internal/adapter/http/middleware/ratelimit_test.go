package middleware_test

import (
"context"
"net/http"
"net/http/httptest"
"testing"
"time"

"donation-ledger/internal/adapter/http/middleware"
redisStore "donation-ledger/internal/adapter/storage/redis"

"github.com/alicebob/miniredis/v2"
"github.com/gin-gonic/gin"
goredis "github.com/redis/go-redis/v9"
"github.com/rs/zerolog"
"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(store *redisStore.RateLimitStore) *gin.Engine {
gin.SetMode(gin.TestMode)
r := gin.New()

rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
log := zerolog.Nop()

r.GET("/test", middleware.RateLimiter(store, "test", rule, log), func(c *gin.Context) {
c.JSON(200, gin.H{"status": "ok"})
})
return r
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
mr := miniredis.RunT(t)
client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
defer client.Close()

store := redisStore.NewRateLimitStore(client)
router := setupRateLimitRouter(store)

for i := 0; i < 3; i++ {
w := httptest.NewRecorder()
req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
router.ServeHTTP(w, req)
assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
mr := miniredis.RunT(t)
client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
defer client.Close()

store := redisStore.NewRateLimitStore(client)
router := setupRateLimitRouter(store)

// Use up the limit
for i := 0; i < 3; i++ {
w := httptest.NewRecorder()
req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
router.ServeHTTP(w, req)
assert.Equal(t, 200, w.Code)
}

// 4th request should be blocked
w := httptest.NewRecorder()
req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
router.ServeHTTP(w, req)
assert.Equal(t, 429, w.Code)
assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_SeparatesClients(t *testing.T) {
mr := miniredis.RunT(t)
client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
defer client.Close()

store := redisStore.NewRateLimitStore(client)
router := setupRateLimitRouter(store)

// First client uses up the limit
for i := 0; i < 3; i++ {
w := httptest.NewRecorder()
req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
req.RemoteAddr = "192.0.2.1:1234"
req.Header.Set("X-Forwarded-For", "10.0.0.1")
router.ServeHTTP(w, req)
assert.Equal(t, 200, w.Code)
}

// Second client should still be allowed (independent counter)
w := httptest.NewRecorder()
req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
req.RemoteAddr = "192.0.2.1:1234"
req.Header.Set("X-Forwarded-For", "10.0.0.2")
router.ServeHTTP(w, req)
assert.Equal(t, 200, w.Code)
}

func TestDefaultRateLimitRules(t *testing.T) {
rules := middleware.DefaultRateLimitRules()
assert.Equal(t, int64(30), rules["donations"].Limit)
assert.Equal(t, int64(300), rules["webhook"].Limit)
assert.Equal(t, int64(60), rules["wallets"].Limit)
assert.Equal(t, int64(10), rules["auth_login"].Limit)
assert.Equal(t, int64(60), rules["admin"].Limit)
}
