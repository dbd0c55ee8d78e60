package handlers

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	freeroute "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/driver"
)

const serviceName = "freeroute-gateway"

// Build information - can be set at build time using ldflags
var (
	GitCommit = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// HealthHandler handles health check requests
type HealthHandler struct {
	gateway freeroute.Gateway
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(g freeroute.Gateway) *HealthHandler {
	return &HealthHandler{
		gateway: g,
		started: time.Now(),
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   freeroute.Version,
	})
}

// LivenessCheck handles GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadinessCheck handles GET /ready. A gateway without a graph store is
// ready; one whose store cannot be reached is not.
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	if h.gateway == nil {
		checks["gateway"] = gin.H{"status": "unhealthy", "error": "gateway not initialized"}
		ready = false
	} else {
		start := time.Now()
		err := h.gateway.Ping(ctx)
		duration := time.Since(start)
		switch {
		case err == nil:
			checks["graph_store"] = gin.H{"status": "healthy", "duration": duration.String()}
		case errors.Is(err, driver.ErrNotConfigured):
			checks["graph_store"] = gin.H{"status": "disabled"}
		default:
			checks["graph_store"] = gin.H{"status": "unhealthy", "error": err.Error(), "duration": duration.String()}
			ready = false
		}
	}
	checks["system"] = gin.H{"status": "healthy", "uptime": time.Since(h.started).Round(time.Second).String()}

	response := gin.H{
		"status":    "ready",
		"service":   serviceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}
	if !ready {
		response["status"] = "not_ready"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// Version handles GET /version
func (h *HealthHandler) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    freeroute.Version,
		"git_commit": GitCommit,
		"build_time": BuildTime,
		"go_version": GoVersion,
	})
}

// WhoAmI handles GET /whoami
func (h *HealthHandler) WhoAmI(c *gin.Context) {
	if h.gateway == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "gateway not initialized"})
		return
	}
	c.JSON(http.StatusOK, h.gateway.Info())
}
