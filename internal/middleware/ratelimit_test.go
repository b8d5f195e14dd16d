package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndelacroix/culture-pass/internal/config"
	"github.com/ndelacroix/culture-pass/internal/model"
	"github.com/ndelacroix/culture-pass/internal/utils"
)

func limiterConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       10,
		RefillTokens:   10,
		RefillInterval: time.Minute,
		TTL:            5 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "ratelimit",
	}
}

func okHandler(called *int) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called++
		return c.String(http.StatusOK, "ok")
	}
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	cfg := limiterConfig()
	cfg.Enabled = false

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/offers", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := 0
	err := NewTokenBucket(cfg, nil)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketFailsOpenOnRedisError(t *testing.T) {
	// No expectations registered, so the script call errors out; the
	// limiter must let the request through rather than block traffic on
	// a Redis outage.
	rdb, _ := redismock.NewClientMock()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/offers", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/offers")

	called := 0
	err := NewTokenBucket(limiterConfig(), rdb)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildRateKeyStrategies(t *testing.T) {
	e := echo.New()
	newCtx := func() echo.Context {
		req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
		req.RemoteAddr = "10.0.0.9:4242"
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/bookings")
		c.Set("user_id", uint64(7))
		return c
	}

	cases := []struct {
		strategy string
		want     string
	}{
		{"ip", "ratelimit:ip:10.0.0.9"},
		{"user", "ratelimit:user:7"},
		{"route", "ratelimit:route:GET /v1/bookings"},
		{"ip_user", "ratelimit:ip:10.0.0.9:user:7"},
		{"user_route", "ratelimit:user:7:route:GET /v1/bookings"},
		{"anything-else", "ratelimit:ip:10.0.0.9:user:7:route:GET /v1/bookings"},
	}
	for _, tc := range cases {
		t.Run(tc.strategy, func(t *testing.T) {
			cfg := limiterConfig()
			cfg.KeyStrategy = tc.strategy
			assert.Equal(t, tc.want, buildRateKey(cfg, newCtx()))
		})
	}
}

func TestRateKeySeesAuthenticatedUser(t *testing.T) {
	const secret = "test-secret"
	tok, err := utils.NewAccessToken(secret, 7, model.RoleBeneficiary, 5)
	require.NoError(t, err)

	cfg := limiterConfig()
	cfg.KeyStrategy = "user"

	// Mirror the route wiring: JWTAuth first, then the limiter's key
	// derivation, so the bucket is scoped to the authenticated user.
	e := echo.New()
	g := e.Group("/v1/bookings")
	g.Use(JWTAuth(secret))
	var got string
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got = buildRateKey(cfg, c)
			return next(c)
		}
	})
	g.GET("", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/v1/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ratelimit:user:7", got)
}

func TestBuildRateKeyAnonymousUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/offers", nil)
	req.RemoteAddr = "10.0.0.9:4242"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/offers")

	cfg := limiterConfig()
	cfg.KeyStrategy = "user"
	assert.Equal(t, "ratelimit:user:anon", buildRateKey(cfg, c))
}
