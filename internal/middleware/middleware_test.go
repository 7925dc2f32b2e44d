package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/apperrors"
	"github.com/anonto42/nano-social/backend/internal/auth"
	"github.com/anonto42/nano-social/backend/internal/cache"
	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/config"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newContext(target string, header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func ok(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

func TestJWTAuthMiddleware(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour, cache.NewMemory())
	verified := time.Now()
	raw, err := tokens.Issue(context.Background(), &models.User{ID: 7, EmailVerifiedAt: &verified})
	require.NoError(t, err)
	mw := JWTAuthMiddleware(tokens)

	tests := []struct {
		name   string
		target string
		header string
		kind   apperrors.Kind
	}{
		{name: "bearer header", target: "/", header: "Bearer " + raw},
		{name: "query token", target: "/?access_token=" + raw},
		{name: "missing", target: "/", kind: apperrors.KindUnauthenticated},
		{name: "wrong scheme", target: "/", header: "Basic " + raw, kind: apperrors.KindUnauthenticated},
		{name: "garbage", target: "/", header: "Bearer nope", kind: apperrors.KindUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.target, tt.header)
			err := mw(ok)(c)
			if tt.kind != apperrors.KindUnknown {
				require.Error(t, err)
				assert.Equal(t, tt.kind, apperrors.KindOf(err))
				assert.Nil(t, Identity(c))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(7), UserID(c))
			assert.True(t, Identity(c).EmailVerified)
		})
	}
}

func TestRequireVerified(t *testing.T) {
	mw := RequireVerified()

	c, _ := newContext("/", "")
	assert.Equal(t, apperrors.KindUnauthenticated, apperrors.KindOf(mw(ok)(c)))

	c, _ = newContext("/", "")
	c.Set(identityKey, &auth.Identity{UserID: 1})
	assert.Equal(t, apperrors.KindAuthorization, apperrors.KindOf(mw(ok)(c)))

	c, rec := newContext("/", "")
	c.Set(identityKey, &auth.Identity{UserID: 1, EmailVerified: true})
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestNewTokenBucket_PassesThroughWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, zap.NewNop())
	for i := 0; i < 3; i++ {
		c, rec := newContext("/", "")
		require.NoError(t, mw(ok)(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}

func TestNewTokenBucket_FailsOpenOnRedisError(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()
	mw := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}, rdb, zap.NewNop())

	c, rec := newContext("/", "")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestRateKey(t *testing.T) {
	c, _ := newContext("/", "")
	c.Request().RemoteAddr = "10.0.0.1:1234"
	c.SetPath("/api/v1/posts")
	c.Set(identityKey, &auth.Identity{UserID: 9})

	tests := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:9",
		"ip_user":    "rl:ip:10.0.0.1:user:9",
		"user_route": "rl:user:9:route:GET /api/v1/posts",
		"":           "rl:ip:10.0.0.1:user:9:route:GET /api/v1/posts",
	}
	for strategy, want := range tests {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c)
		assert.Equal(t, want, got, strategy)
	}

	anon, _ := newContext("/", "")
	anon.Request().RemoteAddr = "10.0.0.2:1"
	assert.Equal(t, "rl:user:anon", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, anon))
}
