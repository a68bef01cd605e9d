package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"riskdesk/internal/models"
)

type Action string

const (
	ActionNone Action = "no_action"
	ActionWarn Action = "warn"
	ActionLock Action = "lock"
)

// Alert types written to the audit trail and used as warning dedupe keys.
const (
	AlertDailyLossWarning  = "daily_loss_warning"
	AlertDailyLossBreach   = "daily_loss_breach"
	AlertProfitLock        = "profit_target_lock"
	AlertDeadlineWarning   = "challenge_deadline_warning"
	AlertInactivityWarning = "inactivity_warning"
	AlertInactivityBreach  = "inactivity_breach"
	AlertManualLock        = "manual_kill_switch"
)

// Decision is the outcome of evaluating one account snapshot at one instant.
type Decision struct {
	Action    Action
	Breaker   string
	Until     time.Time
	Reason    string
	AlertType string
	Severity  string
}

var noAction = Decision{Action: ActionNone, Breaker: models.BreakerNone}

// Evaluator derives lock/warn outcomes from an account snapshot. It is pure:
// no store access, no side effects, the caller supplies the clock.
type Evaluator struct {
	// WarnUsagePct is the percent of the personal daily loss limit at which
	// the near-limit warning fires.
	WarnUsagePct float64
	// CloseHourUTC is the trading-day rollover hour; daily-loss locks expire
	// at the next close.
	CloseHourUTC int
}

func (e Evaluator) warnUsage() float64 {
	if e.WarnUsagePct <= 0 {
		return 70
	}
	return e.WarnUsagePct
}

func (e Evaluator) closeHour() int {
	if e.CloseHourUTC <= 0 || e.CloseHourUTC > 23 {
		return 21
	}
	return e.CloseHourUTC
}

// Evaluate maps an account snapshot to at most one decision. Rule order:
// daily loss breach, profit-target lock, then the near-limit warning.
// Missing or zero limit configuration means "skip this rule", never an error.
func (e Evaluator) Evaluate(acct models.TradingAccount, now time.Time) Decision {
	if acct.Status != models.AccountStatusActive {
		return noAction
	}
	// An account already locked stays as-is until the lock lazily expires.
	if IsLocked(acct.TradingLockedUntil, now) {
		return noAction
	}

	lossPct := DailyLossPct(acct)

	if acct.PersonalDailyLossPct > 0 {
		usage := lossPct / acct.PersonalDailyLossPct * 100
		if usage >= 100 {
			return Decision{
				Action:    ActionLock,
				Breaker:   models.BreakerDailyLoss,
				Until:     NextTradingDayClose(now, e.closeHour()),
				Reason:    fmt.Sprintf("daily loss %.2f%% reached the %.2f%% daily limit", lossPct, acct.PersonalDailyLossPct),
				AlertType: AlertDailyLossBreach,
				Severity:  "critical",
			}
		}
		if usage >= e.warnUsage() {
			return Decision{
				Action:    ActionWarn,
				Breaker:   models.BreakerNone,
				Reason:    fmt.Sprintf("daily loss at %.0f%% of the %.2f%% daily limit", usage, acct.PersonalDailyLossPct),
				AlertType: AlertDailyLossWarning,
				Severity:  "warning",
			}
		}
	}

	if acct.LockAfterTarget && acct.ProfitTargetUSD.GreaterThan(decimal.Zero) &&
		acct.DailyPnL.GreaterThanOrEqual(acct.ProfitTargetUSD) {
		return Decision{
			Action:    ActionLock,
			Breaker:   models.BreakerProfitLock,
			Until:     NextTradingDayClose(now, e.closeHour()),
			Reason:    fmt.Sprintf("daily profit %s reached the %s target, locking in gains", acct.DailyPnL.StringFixed(2), acct.ProfitTargetUSD.StringFixed(2)),
			AlertType: AlertProfitLock,
			Severity:  "info",
		}
	}

	return noAction
}

// KillSwitch builds the manual lock decision for one of the fixed duration
// menu entries: "30m", "1h", "2h" or "eod" (rest of the trading day).
func (e Evaluator) KillSwitch(option string, now time.Time) (Decision, error) {
	var until time.Time
	switch option {
	case "30m":
		until = now.Add(30 * time.Minute)
	case "1h":
		until = now.Add(time.Hour)
	case "2h":
		until = now.Add(2 * time.Hour)
	case "eod":
		until = NextTradingDayClose(now, e.closeHour())
	default:
		return Decision{}, fmt.Errorf("unknown kill switch duration %q", option)
	}
	return Decision{
		Action:    ActionLock,
		Breaker:   models.BreakerManual,
		Until:     until,
		Reason:    "manual kill switch engaged",
		AlertType: AlertManualLock,
		Severity:  "info",
	}, nil
}

// DailyLossPct recomputes the drawdown used today from equity, never trusting
// a stored cache. Zero or negative starting equity means no limit applies.
func DailyLossPct(acct models.TradingAccount) float64 {
	if acct.DailyStartingEquity.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	loss := acct.DailyStartingEquity.Sub(acct.CurrentEquity).
		Div(acct.DailyStartingEquity).
		Mul(decimal.NewFromInt(100))
	v, _ := loss.Float64()
	if v < 0 {
		return 0
	}
	return v
}

// DailyProfitPct mirrors DailyLossPct for the profit side.
func DailyProfitPct(acct models.TradingAccount) float64 {
	if acct.DailyStartingEquity.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	p := acct.DailyPnL.Div(acct.DailyStartingEquity).Mul(decimal.NewFromInt(100))
	v, _ := p.Float64()
	if v < 0 {
		return 0
	}
	return v
}

// LimitUsagePct returns daily loss as a share of the personal limit, clamped
// to [0,100] for display.
func LimitUsagePct(acct models.TradingAccount) float64 {
	if acct.PersonalDailyLossPct <= 0 {
		return 0
	}
	usage := DailyLossPct(acct) / acct.PersonalDailyLossPct * 100
	if usage < 0 {
		return 0
	}
	if usage > 100 {
		return 100
	}
	return usage
}

// IsLocked is the single definition of the derived lock property. There is no
// unlock job: expiry is observed lazily by comparing locked_until to now on
// every read.
func IsLocked(until *time.Time, now time.Time) bool {
	return until != nil && until.After(now)
}

// NextTradingDayClose returns the next closeHour:00 UTC boundary, rolling to
// tomorrow when already past today's close.
func NextTradingDayClose(now time.Time, closeHour int) time.Time {
	now = now.UTC()
	boundary := time.Date(now.Year(), now.Month(), now.Day(), closeHour, 0, 0, 0, time.UTC)
	if !now.Before(boundary) {
		boundary = boundary.Add(24 * time.Hour)
	}
	return boundary
}

// DaysRemaining is the ceiling of the time left to a deadline in whole days.
// A passed deadline yields zero or negative values.
func DaysRemaining(deadline, now time.Time) int {
	return int(math.Ceil(deadline.Sub(now).Hours() / 24))
}

// SameUTCDay implements the date-string dedupe: one warning per account per
// calendar day per alert type, re-firing the next day even if <24h elapsed.
func SameUTCDay(a *time.Time, b time.Time) bool {
	if a == nil {
		return false
	}
	au := a.UTC()
	bu := b.UTC()
	return au.Year() == bu.Year() && au.YearDay() == bu.YearDay()
}

// Status is the dashboard-facing view of an account's risk state.
type Status struct {
	AccountID         uint64          `json:"account_id"`
	IsLocked          bool            `json:"is_locked"`
	LockReason        *string         `json:"lock_reason"`
	LockedUntil       *time.Time      `json:"locked_until"`
	BreakerType       string          `json:"breaker_type"`
	DailyLossPct      float64         `json:"daily_loss_pct"`
	PersonalLimitPct  float64         `json:"personal_limit_pct"`
	LimitUsagePct     float64         `json:"limit_usage_pct"`
	DailyProfitPct    float64         `json:"daily_profit_pct"`
	ProfitTarget      decimal.Decimal `json:"profit_target"`
	ScalingMultiplier float64         `json:"scaling_multiplier"`
	DaysTraded        int             `json:"days_traded"`
	MinTradingDays    int             `json:"min_trading_days"`
}

func StatusOf(acct models.TradingAccount, now time.Time) Status {
	locked := IsLocked(acct.TradingLockedUntil, now)
	st := Status{
		AccountID:         acct.ID,
		IsLocked:          locked,
		BreakerType:       models.BreakerNone,
		DailyLossPct:      DailyLossPct(acct),
		PersonalLimitPct:  acct.PersonalDailyLossPct,
		LimitUsagePct:     LimitUsagePct(acct),
		DailyProfitPct:    DailyProfitPct(acct),
		ProfitTarget:      acct.ProfitTargetUSD,
		ScalingMultiplier: acct.ScalingMultiplier,
		DaysTraded:        acct.DaysTraded,
		MinTradingDays:    acct.MinTradingDays,
	}
	if locked {
		st.LockReason = acct.LockReason
		st.LockedUntil = acct.TradingLockedUntil
		st.BreakerType = acct.BreakerType
	}
	return st
}
