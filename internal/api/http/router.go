package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"gungi-server/internal/api/ws"
	"gungi-server/internal/config"
	"gungi-server/internal/session"
)

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func SetupRouter(m *session.Manager, hub *ws.Hub, cfg config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cfg.CORSOrigin))

	r.GET("/", HelloHandler)
	r.GET("/healthz", HealthHandler)

	// Live session transport
	r.GET("/ws", hub.HandleWS)

	// Discovery and meta endpoints
	r.GET("/current_rooms", CurrentRoomsHandler(m))
	r.GET("/shields", ShieldsHandler(m))
	r.GET("/rooms/:id/qr", RoomQRHandler(m, cfg.CORSOrigin))
	r.GET("/config", GetConfigHandler(cfg))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
