package models

import "time"

// Notification is the in-app feed row the dashboard bell reads.
type Notification struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:varchar(100);not null;index" json:"user_id"`

	Kind  string `gorm:"type:varchar(50);not null;index" json:"kind"`
	Title string `gorm:"type:varchar(200);not null" json:"title"`
	Body  string `gorm:"type:text" json:"body"`

	ReadAt    *time.Time `gorm:"type:timestamptz" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// PushSubscription is a browser push endpoint. A 410/404 delivery response
// means the subscription is dead and the row is deleted so later cycles stop
// retrying it.
type PushSubscription struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:varchar(100);not null;index" json:"user_id"`

	Endpoint string `gorm:"type:text;not null;uniqueIndex:idx_push_endpoint,length:255" json:"endpoint"`
	P256dh   string `gorm:"type:text" json:"p256dh"`
	Auth     string `gorm:"type:text" json:"auth"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (PushSubscription) TableName() string {
	return "push_subscriptions"
}
