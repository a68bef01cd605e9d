package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/repository"
)

type SignalHandler struct {
	Repo repository.Repository
}

func (h *SignalHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/signals", h.list)
}

// @Summary Published trade signals feed
// @Tags signals
// @Param symbol query string false "filter by symbol"
// @Param status query string false "filter by status"
// @Success 200 {array} models.TradingSignal
// @Router /api/v1/signals [get]
func (h *SignalHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListTradingSignals(c.Request.Context(), repository.ListSignalsParams{
		Limit:  limit,
		Offset: offset,
		Symbol: strQueryPtr(c, "symbol"),
		Status: strQueryPtr(c, "status"),
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	meta := paginationMeta(limit, offset, int64(len(items)))
	Ok(c, items, meta)
}
