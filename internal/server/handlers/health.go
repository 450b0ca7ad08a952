package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/uuakee/xotc/internal/domain/interfaces"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	wsManager interfaces.WebSocketManager
}

func NewHealthHandler(wsManager interfaces.WebSocketManager) *HealthHandler {
	return &HealthHandler{wsManager: wsManager}
}

// Health returns basic health status
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "xotc",
		"version":   "1.0.0",
		"timestamp": time.Now(),
	})
}

// Ready returns readiness status
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ready",
		"service":           "xotc",
		"version":           "1.0.0",
		"websocket_clients": h.wsManager.GetClientCount(),
		"timestamp":         time.Now(),
	})
}
