package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/service"
)

type SystemSettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SystemSettingsHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/settings")
	group.GET("/features", h.listFeatures)
	group.PUT("/features", h.setFeature)
}

// @Summary Current feature switch states
// @Tags settings
// @Success 200 {object} map[string]bool
// @Router /api/v1/settings/features [get]
func (h *SystemSettingsHandler) listFeatures(c *gin.Context) {
	out := map[string]bool{}
	for key, def := range service.DefaultFeatureSwitches() {
		out[key] = h.Settings.IsEnabled(c.Request.Context(), key, def)
	}
	Ok(c, out, nil)
}

type setFeatureRequest struct {
	Key     string `json:"key" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// @Summary Toggle a feature switch
// @Tags settings
// @Accept json
// @Param request body setFeatureRequest true "feature toggle"
// @Success 200 {object} map[string]bool
// @Router /api/v1/settings/features [put]
func (h *SystemSettingsHandler) setFeature(c *gin.Context) {
	var req setFeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, known := service.DefaultFeatureSwitches()[req.Key]; !known {
		Error(c, http.StatusBadRequest, "unknown feature key", nil)
		return
	}
	if err := h.Settings.SetEnabled(c.Request.Context(), req.Key, *req.Enabled); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]bool{req.Key: *req.Enabled}, nil)
}
