package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/pageza/alchemorsel-engine/backend/internal/api"
	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/testhelpers"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
	apperrors "github.com/pageza/alchemorsel-engine/backend/pkg/errors"
)

func setupAdminTestRouter(engine *testhelpers.MockEngine, token string) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(zap.NewNop()))
	api.NewAdminHandler(engine, token).RegisterRoutes(r.Group("/api/v1"))
	health := api.NewHealthHandler(engine)
	r.GET("/health", health.HealthCheck)
	return r
}

func TestRebuildRequiresToken(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("Rebuild", mock.Anything).Return(&types.RebuildResponse{CorpusVersion: 2, Recipes: 3}, nil)
	r := setupAdminTestRouter(engine, "s3cret")

	w := doJSON(r, http.MethodPost, "/api/v1/admin/rebuild", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/rebuild", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"corpus_version":2`)
	engine.AssertNumberOfCalls(t, "Rebuild", 1)
}

func TestRebuildFailureIsInternal(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("Rebuild", mock.Anything).Return(nil, apperrors.NewInternalError("snapshot rebuild failed", errors.New("db down")))
	r := setupAdminTestRouter(engine, "")

	w := doJSON(r, http.MethodPost, "/api/v1/admin/rebuild", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestHealthCheck(t *testing.T) {
	engine := new(testhelpers.MockEngine)
	engine.On("Status").Return(types.EngineStatus{AliasVersion: "v1"}).Once()
	engine.On("Status").Return(types.EngineStatus{Ready: true, CorpusVersion: 1, Recipes: 3, AliasVersion: "v1"})
	r := setupAdminTestRouter(engine, "")

	w := doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"starting"`)

	w = doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.Contains(t, w.Body.String(), `"recipes":3`)
}
