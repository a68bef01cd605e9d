package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyStatsRecord holds one row per (account, calendar date). The daily
// reset job creates the row at rollover and finalizes the previous day's row;
// the unique index makes re-runs upserts rather than duplicates.
type DailyStatsRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(100);not null;index" json:"user_id"`
	AccountID uint64    `gorm:"not null;uniqueIndex:idx_account_date" json:"account_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_account_date;index" json:"date"`

	StartingEquity decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"starting_equity"`
	EndingEquity   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"ending_equity"`
	PnL            decimal.Decimal `gorm:"column:pnl;type:numeric(30,10);not null;default:0" json:"pnl"`
	TradesCount    int             `gorm:"not null;default:0" json:"trades_count"`

	Profitable         bool `gorm:"not null;default:false" json:"profitable"`
	CountsAsTradingDay bool `gorm:"not null;default:false" json:"counts_as_trading_day"`
	Finalized          bool `gorm:"not null;default:false" json:"finalized"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (DailyStatsRecord) TableName() string {
	return "daily_stats_records"
}
