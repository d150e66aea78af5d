package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles the health check endpoint
func (ws *WebServer) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"sessions":  ws.sessions.Count(),
		"in_flight": ws.sessions.InFlight(),
		"assets":    len(ws.manifest),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
