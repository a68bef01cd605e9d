package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
)

type AccountHandler struct {
	Repo repository.Repository
}

func (h *AccountHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/accounts")
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.GET("/:id/daily-stats", h.dailyStats)
	group.GET("/:id/alerts", h.alerts)
}

// @Summary List accounts for a user
// @Tags accounts
// @Param user_id query string true "user id"
// @Success 200 {array} models.TradingAccount
// @Router /api/v1/accounts [get]
func (h *AccountHandler) list(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	items, err := h.Repo.ListAccountsByUserID(c.Request.Context(), userID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Account detail with derived risk status
// @Tags accounts
// @Param id path int true "account id"
// @Success 200 {object} map[string]any
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acct, err := h.Repo.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if acct == nil {
		Error(c, http.StatusNotFound, "account not found", nil)
		return
	}
	Ok(c, gin.H{
		"account": acct,
		"status":  risk.StatusOf(*acct, time.Now().UTC()),
	}, nil)
}

// @Summary Daily stats history for an account
// @Tags accounts
// @Param id path int true "account id"
// @Param limit query int false "max rows"
// @Success 200 {array} models.DailyStatsRecord
// @Router /api/v1/accounts/{id}/daily-stats [get]
func (h *AccountHandler) dailyStats(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 30)
	items, err := h.Repo.ListDailyStats(c.Request.Context(), id, limit)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// @Summary Drawdown alert history for an account
// @Tags accounts
// @Param id path int true "account id"
// @Success 200 {array} models.DrawdownAlert
// @Router /api/v1/accounts/{id}/alerts [get]
func (h *AccountHandler) alerts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListDrawdownAlerts(c.Request.Context(), id, repository.ListAlertsParams{
		Limit:     limit,
		Offset:    offset,
		AlertType: strQueryPtr(c, "type"),
		Since:     timeQueryPtr(c, "since"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	meta := paginationMeta(limit, offset, int64(len(items)))
	Ok(c, items, meta)
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid account id", nil)
		return 0, false
	}
	return id, true
}
