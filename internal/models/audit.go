package models

import (
	"time"

	"gorm.io/datatypes"
)

// DrawdownAlert is the append-only breach/warning trail. Rows are never
// mutated; history and notification dedupe read them, the daily reset prunes
// them after the retention window.
type DrawdownAlert struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:varchar(100);not null;index" json:"user_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	AlertType string `gorm:"type:varchar(50);not null;index" json:"alert_type"`
	Severity  string `gorm:"type:varchar(20);not null;default:'warning'" json:"severity"`
	Message   string `gorm:"type:text;not null" json:"message"`
	Terminal  bool   `gorm:"not null;default:false" json:"terminal"`

	Details datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (DrawdownAlert) TableName() string {
	return "drawdown_alerts"
}

type PsychologyLog struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:varchar(100);not null;index" json:"user_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	EventType string         `gorm:"type:varchar(50);not null;index" json:"event_type"`
	Note      string         `gorm:"type:text" json:"note"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (PsychologyLog) TableName() string {
	return "psychology_logs"
}
