package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/api/handler"
	"github.com/d60-Lab/warbler/internal/auth"
	"github.com/d60-Lab/warbler/internal/cache"
	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/internal/middleware"
	"github.com/d60-Lab/warbler/internal/repository"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/internal/session"
	"github.com/d60-Lab/warbler/internal/testutil"
	"github.com/d60-Lab/warbler/internal/web"
)

func setupRouter(t *testing.T, checks map[string]HealthCheck) *gin.Engine {
	t.Helper()
	db := testutil.NewDB(t)
	_, rdb := testutil.NewRedis(t)
	m := metrics.NewMetrics()

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	stats := cache.NewStatsCache(db, rdb, time.Minute, m)
	users := service.NewUserService(userRepo, followRepo, service.NewBcryptHasher(4), stats, nil)
	rels := service.NewRelationshipService(followRepo, userRepo, stats, nil)
	messages := service.NewMessageService(repository.NewMessageRepository(db), repository.NewLikeRepository(db), followRepo, stats, nil)
	sessions := session.NewManager(session.NewRedisStore(rdb), config.SessionConfig{})
	tokens := auth.NewTokenProvider(config.JWTConfig{Secret: "s"})

	cfg := &config.Config{Server: config.ServerConfig{Mode: gin.TestMode, CORSOrigins: []string{"https://app.example.com"}}}
	r, err := Setup(Options{
		Config:       cfg,
		Web:          web.NewHandler(users, rels, messages, sessions, nil, m),
		API:          handler.NewHandler(users, rels, messages, tokens, m),
		Metrics:      m,
		LoginLimiter: middleware.NewIPRateLimiter(0, 0),
		Checks:       checks,
	})
	require.NoError(t, err)
	return r
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	r := setupRouter(t, map[string]HealthCheck{"db": ok})
	w := serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"db":"ok"`)

	down := func(context.Context) error { return errors.New("connection refused") }
	r = setupRouter(t, map[string]HealthCheck{"db": ok, "redis": down})
	w = serve(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsEndpoint(t *testing.T) {
	r := setupRouter(t, nil)
	serve(r, httptest.NewRequest(http.MethodGet, "/users", nil))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `route="/users"`)
}

func TestSwagger(t *testing.T) {
	r := setupRouter(t, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/auth/token")
}

func TestAPIPreflight(t *testing.T) {
	r := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/messages", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestGzipPages(t *testing.T) {
	r := setupRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestAPIAndWebMounted(t *testing.T) {
	r := setupRouter(t, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/timeline", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate, public, max-age=0", w.Header().Get("Cache-Control"))
}
