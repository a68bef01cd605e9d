package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/auth"
)

type AuthHandler struct {
	OTP *auth.OTPService
}

func (h *AuthHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/auth/otp")
	group.POST("/request", h.request)
	group.POST("/verify", h.verify)
}

type otpRequestBody struct {
	Email string `json:"email" binding:"required"`
}

// @Summary Email a one-time login code
// @Tags auth
// @Accept json
// @Param request body otpRequestBody true "email"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/otp/request [post]
func (h *AuthHandler) request(c *gin.Context) {
	var req otpRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.OTP.RequestCode(c.Request.Context(), req.Email); err != nil {
		h.writeAuthError(c, err)
		return
	}
	Ok(c, gin.H{"status": "sent"}, nil)
}

type otpVerifyBody struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// @Summary Verify a one-time login code
// @Tags auth
// @Accept json
// @Param request body otpVerifyBody true "email and code"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/otp/verify [post]
func (h *AuthHandler) verify(c *gin.Context) {
	var req otpVerifyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if err := h.OTP.VerifyCode(c.Request.Context(), req.Email, req.Code); err != nil {
		h.writeAuthError(c, err)
		return
	}
	Ok(c, gin.H{"status": "verified"}, nil)
}

func (h *AuthHandler) writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidCode):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrRateLimited), errors.Is(err, auth.ErrTooManyAttempts):
		Error(c, http.StatusTooManyRequests, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
