package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

func rateLimitTestConfig(capacity int) config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
}

func TestRateLimitAllowsWithinCapacity(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(rateLimitTestConfig(3), rdb))

	for i := 0; i < 3; i++ {
		rec := runCached(e, http.MethodGet, "/v1/events")
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
	rec := runCached(e, http.MethodGet, "/v1/events")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "too_many_requests")
}

func TestRateLimitHeaders(t *testing.T) {
	_, rdb := newTestRedis(t)
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(rateLimitTestConfig(5), rdb))

	rec := runCached(e, http.MethodGet, "/v1/events")
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitRefill(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := rateLimitTestConfig(1)
	cfg.RefillInterval = 50 * time.Millisecond
	cfg.TTL = time.Second
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(cfg, rdb))

	rec := runCached(e, http.MethodGet, "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = runCached(e, http.MethodGet, "/v1/events")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	time.Sleep(60 * time.Millisecond)
	rec = runCached(e, http.MethodGet, "/v1/events")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitSeparateRoutes(t *testing.T) {
	_, rdb := newTestRedis(t)
	cfg := rateLimitTestConfig(1)
	e := echo.New()
	rl := RateLimit(cfg, rdb)
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/v1/events", ok, rl)
	e.GET("/v1/me", ok, rl)

	rec := runCached(e, http.MethodGet, "/v1/events")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = runCached(e, http.MethodGet, "/v1/events")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different route draws from a different bucket.
	rec = runCached(e, http.MethodGet, "/v1/me")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitBucketsPerUser(t *testing.T) {
	// With JWTAuth ahead of the limiter the bucket key carries the
	// caller's identity, so one user exhausting their bucket must not
	// throttle another.
	_, rdb := newTestRedis(t)
	cfg := rateLimitTestConfig(1)
	cfg.KeyStrategy = "user_route"
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, JWTAuth(testSecret), RateLimit(cfg, rdb))

	ada, err := utils.NewAccessToken(testSecret, 1, false, 15)
	require.NoError(t, err)
	brian, err := utils.NewAccessToken(testSecret, 2, false, 15)
	require.NoError(t, err)

	rec := authedGet(e, "/v1/events", ada.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = authedGet(e, "/v1/events", ada.Token)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = authedGet(e, "/v1/events", brian.Token)
	assert.Equal(t, http.StatusOK, rec.Code, "a different user draws from a different bucket")
}

func authedGet(e *echo.Echo, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := rateLimitTestConfig(1)
	cfg.Enabled = false
	e := echo.New()
	e.GET("/v1/events", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}, RateLimit(cfg, nil))

	for i := 0; i < 5; i++ {
		rec := runCached(e, http.MethodGet, "/v1/events")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
