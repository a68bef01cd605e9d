package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalPaid     = "paid"
	WithdrawalRejected = "rejected"
)

type Withdrawal struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string `gorm:"type:varchar(100);not null;index" json:"user_id"`
	AccountID uint64 `gorm:"not null;index" json:"account_id"`

	AmountUSD decimal.Decimal `gorm:"column:amount_usd;type:numeric(30,10);not null" json:"amount_usd"`
	Method    string          `gorm:"type:varchar(30);not null" json:"method"`
	Status    string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	RequestedAt time.Time  `gorm:"type:timestamptz;not null" json:"requested_at"`
	ProcessedAt *time.Time `gorm:"type:timestamptz" json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Withdrawal) TableName() string {
	return "withdrawals"
}
