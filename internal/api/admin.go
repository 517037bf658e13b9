package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/alchemorsel-engine/backend/internal/middleware"
	"github.com/pageza/alchemorsel-engine/backend/internal/service"
)

// AdminHandler exposes operational endpoints behind the admin token.
type AdminHandler struct {
	engine service.IEngine
	token  string
}

func NewAdminHandler(engine service.IEngine, token string) *AdminHandler {
	return &AdminHandler{engine: engine, token: token}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := router.Group("/admin", middleware.AdminAuth(h.token))
	{
		admin.POST("/rebuild", h.Rebuild)
	}
}

// Rebuild reloads the recipe corpus and nutrient table. Concurrent calls
// share a single rebuild.
func (h *AdminHandler) Rebuild(c *gin.Context) {
	resp, err := h.engine.Rebuild(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
