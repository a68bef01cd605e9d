package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/service"
)

// JobsHandler triggers the scheduled jobs on demand. The same code paths run
// under cron; these endpoints exist for operations and for frontends that
// poll a manual "run now" button.
type JobsHandler struct {
	DailyReset *service.DailyResetService
	Deadline   *service.DeadlineMonitorService
	Inactivity *service.InactivityMonitorService
}

func (h *JobsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/jobs")
	group.POST("/daily-equity-reset", h.dailyReset)
	group.POST("/challenge-deadline-monitor", h.deadlineMonitor)
	group.POST("/inactivity-monitor", h.inactivityMonitor)
}

// @Summary Run the daily equity reset now
// @Tags jobs
// @Success 200 {object} service.DailyResetSummary
// @Router /api/v1/jobs/daily-equity-reset [post]
func (h *JobsHandler) dailyReset(c *gin.Context) {
	if h.DailyReset == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	sum, err := h.DailyReset.RunOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, sum, nil)
}

// @Summary Run the challenge deadline monitor now
// @Tags jobs
// @Success 200 {object} service.DeadlineMonitorSummary
// @Router /api/v1/jobs/challenge-deadline-monitor [post]
func (h *JobsHandler) deadlineMonitor(c *gin.Context) {
	if h.Deadline == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	sum, err := h.Deadline.RunOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, sum, nil)
}

// @Summary Run the inactivity monitor now
// @Tags jobs
// @Success 200 {object} service.InactivityMonitorSummary
// @Router /api/v1/jobs/inactivity-monitor [post]
func (h *JobsHandler) inactivityMonitor(c *gin.Context) {
	if h.Inactivity == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	sum, err := h.Inactivity.RunOnce(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, sum, nil)
}
