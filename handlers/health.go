package handlers

import (
	"net/http"

	"snaplink/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the last dependency check. It answers 503 when a
// store the wizard needs is unreachable.
func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	healthy := status.Mongo && !status.CheckedAt.IsZero()
	for _, ok := range status.Redis {
		healthy = healthy && ok
	}
	code := http.StatusOK
	state := "ok"
	if !healthy {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "checks": status})
}
