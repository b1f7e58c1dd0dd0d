package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tronobserver/internal/monitoring"
)

// HealthHandler exposes liveness and readiness reports.
type HealthHandler struct {
	manager *monitoring.HealthManager
	now     func() time.Time
}

// NewHealthHandler constructs a health handler over the provided manager.
func NewHealthHandler(manager *monitoring.HealthManager) (*HealthHandler, error) {
	if manager == nil {
		return nil, errors.New("health handler: manager is required")
	}
	return &HealthHandler{manager: manager, now: time.Now}, nil
}

// Summary reports the aggregated readiness status without per-check details.
func (h *HealthHandler) Summary(c *gin.Context) {
	report := h.manager.EvaluateReadiness(requestContext(c))
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checked_at": h.now().UTC(),
	})
}

// Live reports liveness checks.
func (h *HealthHandler) Live(c *gin.Context) {
	h.writeReport(c, h.manager.EvaluateLiveness(requestContext(c)))
}

// Ready reports readiness checks.
func (h *HealthHandler) Ready(c *gin.Context) {
	h.writeReport(c, h.manager.EvaluateReadiness(requestContext(c)))
}

func (h *HealthHandler) writeReport(c *gin.Context, report monitoring.HealthReport) {
	c.JSON(healthStatusCode(report), gin.H{
		"success":    report.Success,
		"status":     report.Status,
		"checks":     report.Checks,
		"checked_at": h.now().UTC(),
	})
}

// HealthDisabled answers health routes when health checks are switched off.
func HealthDisabled(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"status":  "disabled",
	})
}

func healthStatusCode(report monitoring.HealthReport) int {
	if !report.Success {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
