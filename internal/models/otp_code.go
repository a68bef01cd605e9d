package models

import "time"

// OTPCode stores a bcrypt hash of an emailed login code, never the code
// itself. Attempts is bumped on every failed verify; past the threshold the
// code is burned and the caller is told to request a new one.
type OTPCode struct {
	ID    uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"type:varchar(200);not null;index" json:"email"`

	CodeHash   string     `gorm:"type:varchar(100);not null" json:"-"`
	ExpiresAt  time.Time  `gorm:"type:timestamptz;not null" json:"expires_at"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	ConsumedAt *time.Time `gorm:"type:timestamptz" json:"consumed_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}
