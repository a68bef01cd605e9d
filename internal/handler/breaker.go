package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/models"
	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
	"riskdesk/internal/service"
)

// BreakerHandler exposes the circuit breaker: the pre-trade check, the manual
// kill switch and the owner unlock.
type BreakerHandler struct {
	Repo       repository.Repository
	Controller *service.LockController
	Eval       risk.Evaluator
	Flags      *service.SystemSettingsService
}

func (h *BreakerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/breaker")
	group.POST("/check", h.check)
	group.POST("/killswitch", h.killSwitch)
	group.POST("/unlock", h.unlock)
	group.GET("/status", h.status)
}

type breakerCheckRequest struct {
	AccountID uint64 `json:"account_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	CheckOnly bool   `json:"check_only"`
}

// @Summary Evaluate an account against its risk rules
// @Tags breaker
// @Accept json
// @Param request body breakerCheckRequest true "check request"
// @Success 200 {object} risk.Status
// @Router /api/v1/breaker/check [post]
func (h *BreakerHandler) check(c *gin.Context) {
	var req breakerCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	acct, ok := h.ownedAccount(c, req.AccountID, req.UserID)
	if !ok {
		return
	}
	if h.Flags != nil && !h.Flags.IsEnabled(c.Request.Context(), service.FeatureCircuitBreaker, true) {
		// Breaker disabled: report status without evaluating.
		Ok(c, risk.StatusOf(*acct, time.Now().UTC()), nil)
		return
	}

	status, err := h.Controller.CheckAndApply(c.Request.Context(), h.Eval, acct, req.CheckOnly, time.Now().UTC())
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			Error(c, http.StatusConflict, "account was modified concurrently, retry", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, status, nil)
}

type killSwitchRequest struct {
	AccountID uint64 `json:"account_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
	Duration  string `json:"duration" binding:"required"`
}

// @Summary Engage the manual kill switch
// @Tags breaker
// @Accept json
// @Param request body killSwitchRequest true "kill switch request"
// @Success 200 {object} risk.Status
// @Router /api/v1/breaker/killswitch [post]
func (h *BreakerHandler) killSwitch(c *gin.Context) {
	var req killSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	acct, ok := h.ownedAccount(c, req.AccountID, req.UserID)
	if !ok {
		return
	}

	now := time.Now().UTC()
	dec, err := h.Eval.KillSwitch(req.Duration, now)
	if err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.Controller.Lock(c.Request.Context(), acct, dec); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			Error(c, http.StatusConflict, "account was modified concurrently, retry", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, risk.StatusOf(*acct, now), nil)
}

type unlockRequest struct {
	AccountID uint64 `json:"account_id" binding:"required"`
	UserID    string `json:"user_id" binding:"required"`
}

// @Summary Clear the current lock
// @Tags breaker
// @Accept json
// @Param request body unlockRequest true "unlock request"
// @Success 200 {object} risk.Status
// @Router /api/v1/breaker/unlock [post]
func (h *BreakerHandler) unlock(c *gin.Context) {
	var req unlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	acct, ok := h.ownedAccount(c, req.AccountID, req.UserID)
	if !ok {
		return
	}

	if err := h.Controller.Unlock(c.Request.Context(), acct); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			Error(c, http.StatusConflict, "account was modified concurrently, retry", nil)
			return
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, risk.StatusOf(*acct, time.Now().UTC()), nil)
}

// @Summary Current risk status for an account
// @Tags breaker
// @Param account_id query int true "account id"
// @Success 200 {object} risk.Status
// @Router /api/v1/breaker/status [get]
func (h *BreakerHandler) status(c *gin.Context) {
	id := uint64(intQuery(c, "account_id", 0))
	if id == 0 {
		Error(c, http.StatusBadRequest, "account_id is required", nil)
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
	Ok(c, risk.StatusOf(*acct, time.Now().UTC()), nil)
}

func (h *BreakerHandler) ownedAccount(c *gin.Context, accountID uint64, userID string) (*models.TradingAccount, bool) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return nil, false
	}
	acct, err := h.Repo.GetAccountByID(c.Request.Context(), accountID)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return nil, false
	}
	if acct == nil || acct.UserID != userID {
		Error(c, http.StatusNotFound, "account not found", nil)
		return nil, false
	}
	return acct, true
}
