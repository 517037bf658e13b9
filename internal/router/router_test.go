package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/testhelpers"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSetupRouterServesHealthAndMetrics(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("Status").Return(types.EngineStatus{Ready: true, Recipes: 3})
	r := SetupRouter(engine, Options{AllowedOrigins: []string{"*"}})

	w := get(r, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = get(r, "/api/v1/health", map[string]string{"X-Request-ID": "req-42"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = get(r, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSetupRouterAppliesCORS(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("Status").Return(types.EngineStatus{Ready: true})
	r := SetupRouter(engine, Options{AllowedOrigins: []string{"https://app.example.com"}})

	w := get(r, "/health", map[string]string{"Origin": "https://app.example.com"})
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouterRateLimitsAPI(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("FilterOptions", mock.Anything).Return(&types.FilterOptionsResponse{}, nil)
	engine.On("Status").Return(types.EngineStatus{Ready: true})
	limiter := middleware.NewMemoryLimiter(middleware.RateLimitConfig{Window: time.Minute, Limit: 2})
	r := SetupRouter(engine, Options{AllowedOrigins: []string{"*"}, Limiter: limiter, RateLimit: 2})

	assert.Equal(t, http.StatusOK, get(r, "/api/v1/recipes/filter-options", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/api/v1/recipes/filter-options", nil).Code)
	w := get(r, "/api/v1/recipes/filter-options", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// health and metrics sit outside the limited group
	assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
}

func TestSetupRouterUnknownRoute(t *testing.T) {
	r := SetupRouter(new(testhelpers.MockEngine), Options{})
	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/nope", nil).Code)
}
