package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"weather-server/usecases"
)

type CacheHandler struct {
	useCase *usecases.ReadingUseCase
	logger  *slog.Logger
}

func NewCacheHandler(useCase *usecases.ReadingUseCase, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{useCase: useCase, logger: logger}
}

// GetCacheStats handles GET /weather/admin/cache/stats
func (h *CacheHandler) GetCacheStats(c *gin.Context) {
	stats, enabled, err := h.useCase.CacheStats(c.Request.Context())
	if err != nil {
		h.logger.Error("cache stats failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An unhandled exception occurred."})
		return
	}
	if !enabled {
		c.JSON(http.StatusOK, gin.H{"status": "disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"stats":  stats,
	})
}
