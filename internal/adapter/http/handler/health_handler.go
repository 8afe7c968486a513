package handler

import (
	"net/http"

	"company-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health by pinging every storage dependency.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus, len(checkers))
		healthy := true
		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				healthy = false
				continue
			}
			deps[checker.Name()] = depStatus{Status: "healthy"}
		}

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "dependencies": deps})
	}
}
