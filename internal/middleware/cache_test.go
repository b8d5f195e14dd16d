package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndelacroix/culture-pass/internal/config"
)

func cacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          30 * time.Second,
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func browseContext(method string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/v1/offers?q=concert", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/offers")
	return c, rec
}

func TestRedisCacheHitReplaysStoredResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := browseContext(http.MethodGet)

	stored, err := json.Marshal(cachedResponse{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   []byte(`{"offers":[]}`),
	})
	require.NoError(t, err)
	mock.ExpectGet(cacheKeyFrom(cacheConfig(), c)).SetVal(string(stored))

	called := 0
	err = NewRedisCache(cacheConfig(), rdb)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Zero(t, called, "handler must not run on a cache hit")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"offers":[]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheMissServesAndMarks(t *testing.T) {
	// SetEx is not stubbed; the store failure is ignored and the
	// response still reaches the client.
	rdb, mock := redismock.NewClientMock()
	c, rec := browseContext(http.MethodGet)
	mock.ExpectGet(cacheKeyFrom(cacheConfig(), c)).RedisNil()

	called := 0
	err := NewRedisCache(cacheConfig(), rdb)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRedisCacheSkipsUncachedMethods(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c, rec := browseContext(http.MethodPost)

	called := 0
	err := NewRedisCache(cacheConfig(), rdb)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheDisabledPassesThrough(t *testing.T) {
	cfg := cacheConfig()
	cfg.Enabled = false
	c, rec := browseContext(http.MethodGet)

	called := 0
	err := NewRedisCache(cfg, nil)(okHandler(&called))(c)
	require.NoError(t, err)
	assert.Equal(t, 1, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}
