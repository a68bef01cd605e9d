package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountStatusActive = "active"
	AccountStatusFailed = "failed"
	AccountStatusClosed = "closed"
)

const (
	BreakerNone       = "none"
	BreakerDailyLoss  = "daily_loss"
	BreakerProfitLock = "profit_lock"
	BreakerInactivity = "inactivity"
	BreakerManual     = "manual"
)

// TradingAccount is the shared mutable row every actor operates on. Lock
// state is three columns guarded by the version counter: writers update with
// UPDATE ... WHERE version = ? so a manual unlock and an automated lock
// cannot silently clobber each other.
type TradingAccount struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID string `gorm:"type:varchar(100);not null;index" json:"user_id"`

	Status        string  `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	FailureReason *string `gorm:"type:text" json:"failure_reason,omitempty"`

	StartingBalance decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"starting_balance"`
	CurrentEquity   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"current_equity"`
	HighestEquity   decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"highest_equity"`

	DailyDrawdownLimitPct float64         `gorm:"not null;default:0" json:"daily_drawdown_limit_pct"`
	MaxDrawdownLimitPct   float64         `gorm:"not null;default:0" json:"max_drawdown_limit_pct"`
	PersonalDailyLossPct  float64         `gorm:"not null;default:0" json:"personal_daily_loss_pct"`
	ProfitTargetUSD       decimal.Decimal `gorm:"column:profit_target_usd;type:numeric(30,10);not null;default:0" json:"profit_target_usd"`
	LockAfterTarget       bool            `gorm:"not null;default:false" json:"lock_after_target"`
	MinTradingDays        int             `gorm:"not null;default:0" json:"min_trading_days"`

	DailyStartingEquity  decimal.Decimal `gorm:"type:numeric(30,10);not null;default:0" json:"daily_starting_equity"`
	DailyPnL             decimal.Decimal `gorm:"column:daily_pnl;type:numeric(30,10);not null;default:0" json:"daily_pnl"`
	DailyDrawdownUsedPct float64         `gorm:"not null;default:0" json:"daily_drawdown_used_pct"`
	TradesToday          int             `gorm:"not null;default:0" json:"trades_today"`
	DaysTraded           int             `gorm:"not null;default:0" json:"days_traded"`
	LastDailyResetAt     *time.Time      `gorm:"type:timestamptz" json:"last_daily_reset_at,omitempty"`

	TradingLockedUntil *time.Time `gorm:"type:timestamptz;index" json:"trading_locked_until,omitempty"`
	LockReason         *string    `gorm:"type:text" json:"lock_reason,omitempty"`
	BreakerType        string     `gorm:"type:varchar(20);not null;default:'none'" json:"breaker_type"`

	ChallengeDeadlineAt  *time.Time `gorm:"type:timestamptz;index" json:"challenge_deadline_at,omitempty"`
	InactivityDeadlineAt *time.Time `gorm:"type:timestamptz;index" json:"inactivity_deadline_at,omitempty"`

	// Warning dedupe stamps, compared by UTC date equality so a warning can
	// re-fire the next day even if less than 24h elapsed.
	LossWarnedAt       *time.Time `gorm:"type:timestamptz" json:"loss_warned_at,omitempty"`
	DeadlineWarnedAt   *time.Time `gorm:"type:timestamptz" json:"deadline_warned_at,omitempty"`
	InactivityWarnedAt *time.Time `gorm:"type:timestamptz" json:"inactivity_warned_at,omitempty"`

	ScalingMultiplier float64 `gorm:"not null;default:0.5" json:"scaling_multiplier"`
	ScalingWeek       int     `gorm:"not null;default:1" json:"scaling_week"`

	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (TradingAccount) TableName() string {
	return "trading_accounts"
}
