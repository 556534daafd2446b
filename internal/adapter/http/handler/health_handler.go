package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bank-cards/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds each dependency ping.
const healthCheckTimeout = 2 * time.Second

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthCheck handles GET /health. Dependencies are pinged concurrently; any
// failure turns the overall status into "degraded" with a 503.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		statuses := make([]dependencyStatus, len(checkers))
		var wg sync.WaitGroup
		for i, checker := range checkers {
			wg.Add(1)
			go func(i int, checker ports.HealthChecker) {
				defer wg.Done()
				statuses[i] = dependencyStatus{Status: "healthy"}
				if err := checker.Ping(ctx); err != nil {
					statuses[i] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
				}
			}(i, checker)
		}
		wg.Wait()

		overall, code := "healthy", http.StatusOK
		deps := make(map[string]dependencyStatus, len(checkers))
		for i, checker := range checkers {
			deps[checker.Name()] = statuses[i]
			if statuses[i].Status != "healthy" {
				overall, code = "degraded", http.StatusServiceUnavailable
			}
		}

		c.JSON(code, gin.H{"status": overall, "dependencies": deps})
	}
}
