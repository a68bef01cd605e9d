package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradingSignal is a published trade idea shown on the dashboard feed.
type TradingSignal struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol string `gorm:"type:varchar(30);not null;index" json:"symbol"`

	Direction  string          `gorm:"type:varchar(10);not null" json:"direction"`
	Entry      decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0" json:"entry"`
	StopLoss   decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0" json:"stop_loss"`
	TakeProfit decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0" json:"take_profit"`
	Confidence float64         `gorm:"not null;default:0" json:"confidence"`

	Status    string    `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (TradingSignal) TableName() string {
	return "trading_signals"
}
