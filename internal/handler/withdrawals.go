package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"riskdesk/internal/models"
	"riskdesk/internal/repository"
)

type WithdrawalHandler struct {
	Repo repository.Repository
}

func (h *WithdrawalHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/withdrawals")
	group.GET("", h.list)
	group.POST("", h.request)
}

// @Summary Withdrawal history for a user
// @Tags withdrawals
// @Param user_id query string true "user id"
// @Success 200 {array} models.Withdrawal
// @Router /api/v1/withdrawals [get]
func (h *WithdrawalHandler) list(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	items, err := h.Repo.ListWithdrawalsByUser(c.Request.Context(), userID, intQuery(c, "limit", 50))
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

type withdrawalRequest struct {
	UserID    string          `json:"user_id" binding:"required"`
	AccountID uint64          `json:"account_id" binding:"required"`
	AmountUSD decimal.Decimal `json:"amount_usd" binding:"required"`
	Method    string          `json:"method" binding:"required"`
}

// @Summary Request a withdrawal
// @Tags withdrawals
// @Accept json
// @Param request body withdrawalRequest true "withdrawal"
// @Success 200 {object} models.Withdrawal
// @Router /api/v1/withdrawals [post]
func (h *WithdrawalHandler) request(c *gin.Context) {
	var req withdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if req.AmountUSD.LessThanOrEqual(decimal.Zero) {
		Error(c, http.StatusBadRequest, "amount must be positive", nil)
		return
	}
	acct, err := h.Repo.GetAccountByID(c.Request.Context(), req.AccountID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if acct == nil || acct.UserID != req.UserID {
		Error(c, http.StatusNotFound, "account not found", nil)
		return
	}
	if acct.Status != models.AccountStatusActive {
		Error(c, http.StatusConflict, "account is not active", nil)
		return
	}
	if acct.DaysTraded < acct.MinTradingDays {
		Error(c, http.StatusConflict, "minimum trading days not reached", nil)
		return
	}

	item := &models.Withdrawal{
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		AmountUSD:   req.AmountUSD,
		Method:      req.Method,
		Status:      models.WithdrawalPending,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.Repo.InsertWithdrawal(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, item, nil)
}
