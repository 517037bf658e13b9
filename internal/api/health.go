package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/alchemorsel-engine/backend/internal/service"
	"github.com/pageza/alchemorsel-engine/backend/internal/types"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	types.EngineStatus
}

type HealthHandler struct {
	engine service.IEngine
}

func NewHealthHandler(engine service.IEngine) *HealthHandler {
	return &HealthHandler{engine: engine}
}

// HealthCheck reports the served snapshots. It answers 503 until both the
// corpus and the nutrient table have been built.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := h.engine.Status()
	if !status.Ready {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "starting", EngineStatus: status})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy", EngineStatus: status})
}
