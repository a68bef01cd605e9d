package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"riskdesk/internal/models"
	"riskdesk/internal/repository"
)

type NotificationHandler struct {
	Repo repository.Repository
}

func (h *NotificationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/notifications")
	group.GET("", h.list)
	group.POST("/:id/read", h.markRead)
	group.POST("/subscriptions", h.subscribe)
}

// @Summary In-app notification feed for a user
// @Tags notifications
// @Param user_id query string true "user id"
// @Param unread query bool false "unread only"
// @Success 200 {array} models.Notification
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) list(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		Error(c, http.StatusBadRequest, "user_id is required", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListNotificationsByUser(c.Request.Context(), userID, repository.ListNotificationsParams{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: c.Query("unread") == "true",
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	meta := paginationMeta(limit, offset, int64(len(items)))
	Ok(c, items, meta)
}

// @Summary Mark a notification read
// @Tags notifications
// @Param id path int true "notification id"
// @Success 200 {object} map[string]string
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) markRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid notification id", nil)
		return
	}
	if err := h.Repo.MarkNotificationRead(c.Request.Context(), id, time.Now().UTC()); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "read"}, nil)
}

type subscribeRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Endpoint string `json:"endpoint" binding:"required"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// @Summary Register a browser push subscription
// @Tags notifications
// @Accept json
// @Param request body subscribeRequest true "subscription"
// @Success 200 {object} map[string]string
// @Router /api/v1/notifications/subscriptions [post]
func (h *NotificationHandler) subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	item := &models.PushSubscription{
		UserID:   req.UserID,
		Endpoint: req.Endpoint,
		P256dh:   req.P256dh,
		Auth:     req.Auth,
	}
	if err := h.Repo.UpsertPushSubscription(c.Request.Context(), item); err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, gin.H{"status": "subscribed"}, nil)
}
