package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gungi-server/internal/config"
)

// @Summary Client-facing transport settings
// @Description Keepalive intervals a client should align its ping logic with
// @Tags Config
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /config [get]
func GetConfigHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"pingInterval": cfg.PingInterval.Milliseconds(),
			"pingTimeout":  cfg.PingTimeout.Milliseconds(),
		})
	}
}
