package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"gungi-server/internal/session"
)

const logoSvg = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 24 24"><rect width="24" height="24" rx="4" fill="#b91c1c"/><text x="12" y="17" font-size="14" text-anchor="middle" fill="#fff">碁</text></svg>`

// @Summary Service greeting
// @Tags Meta
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func HelloHandler(c *gin.Context) {
	c.String(http.StatusOK, "hello world!")
}

// @Summary Liveness probe
// @Tags Meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /healthz [get]
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary List live rooms
// @Description Read-only snapshot of every room: id, roster and started flag
// @Tags Room
// @Produce json
// @Success 200 {array} session.RoomSummary
// @Router /current_rooms [get]
func CurrentRoomsHandler(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, RoomListResponse(m.ListAll()))
	}
}

// @Summary Badge data for shields.io
// @Tags Meta
// @Produce json
// @Success 200 {object} ShieldsResponse
// @Router /shields [get]
func ShieldsHandler(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		n := len(m.ListAll())
		c.JSON(http.StatusOK, ShieldsResponse{
			Label:   "Gungi.io",
			Message: fmt.Sprintf("%d active games", n),
			LogoSvg: logoSvg,
		})
	}
}

// @Summary Join-link QR code
// @Description PNG QR encoding the spectator join URL for a room
// @Tags Room
// @Produce png
// @Param id path string true "Room ID"
// @Success 200 {string} binary
// @Failure 404 {object} map[string]interface{}
// @Router /rooms/{id}/qr [get]
func RoomQRHandler(m *session.Manager, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("id")
		if _, ok := m.Get(roomID); !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		png, err := qrcode.Encode(fmt.Sprintf("%s/game/%s", baseURL, roomID), qrcode.Medium, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}
