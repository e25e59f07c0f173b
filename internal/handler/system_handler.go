package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/coursehub-backend/internal/response"
	"github.com/stemsi/coursehub-backend/internal/service"
)

// SystemHandler serves health, metrics and the degraded-mode fallback.
type SystemHandler struct {
	courses   *service.CourseService
	metrics   *service.MetricsService
	configErr error
	startTime time.Time
}

// NewSystemHandler creates a SystemHandler. A non-nil configErr puts the
// process in degraded mode; courses is nil then.
func NewSystemHandler(courses *service.CourseService, metrics *service.MetricsService, configErr error) *SystemHandler {
	return &SystemHandler{
		courses:   courses,
		metrics:   metrics,
		configErr: configErr,
		startTime: time.Now(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	uptime := time.Since(h.startTime).Round(time.Second).String()

	if h.configErr != nil || h.courses == nil {
		reason := "course service unavailable"
		if h.configErr != nil {
			reason = h.configErr.Error()
		}
		response.Success(c, http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"reason": reason,
			"uptime": uptime,
		})
		return
	}

	snap := h.courses.Snapshot()
	response.Success(c, http.StatusOK, gin.H{
		"status": "ok",
		"uptime": uptime,
		"store": gin.H{
			"state":         snap.State,
			"error":         snap.Error,
			"version":       snap.Version,
			"total_courses": len(snap.Courses),
		},
	})
}

// Metrics godoc
// GET /metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Unavailable answers every catalog route while the course database is not
// configured.
func (h *SystemHandler) Unavailable(c *gin.Context) {
	response.AbortFail(c, http.StatusServiceUnavailable, response.ErrDatabaseConnection)
}
