package notify

import (
	"context"
	"strings"
	"time"

	"riskdesk/internal/models"
)

type NotificationStore interface {
	InsertNotification(ctx context.Context, item *models.Notification) error
}

// InAppChannel writes to the notifications table the dashboard bell reads.
type InAppChannel struct {
	Store NotificationStore
}

func (c *InAppChannel) Name() string { return "in_app" }

func (c *InAppChannel) Send(ctx context.Context, ev Event) error {
	if c == nil || c.Store == nil {
		return nil
	}
	if strings.TrimSpace(ev.UserID) == "" {
		return nil
	}
	return c.Store.InsertNotification(ctx, &models.Notification{
		UserID:    ev.UserID,
		Kind:      ev.Type,
		Title:     ev.Title,
		Body:      ev.Body,
		CreatedAt: time.Now().UTC(),
	})
}
