package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{
		infra: infra,
	}
}

type dependencyStatus struct {
	name string
	err  error
}

// check pings both stores concurrently and reports per-dependency results
func (h *HealthChecker) check(ctx context.Context) []dependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(chan dependencyStatus, 2)

	go func() {
		results <- dependencyStatus{"postgres", h.infra.Postgres().Ping(ctx)}
	}()

	go func() {
		results <- dependencyStatus{"redis", h.infra.Redis().Ping(ctx)}
	}()

	return []dependencyStatus{<-results, <-results}
}

func (h *HealthChecker) Handler(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	for _, dep := range h.check(c.Request.Context()) {
		if dep.err != nil {
			checks[dep.name] = dep.err.Error()
			healthy = false
		} else {
			checks[dep.name] = "pass"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "fail",
			"checks": checks,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "pass",
		"checks": checks,
	})
}
