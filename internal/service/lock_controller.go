package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"riskdesk/internal/models"
	"riskdesk/internal/notify"
	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
)

// EventPublisher decouples lock state changes from notification delivery.
// *notify.Dispatcher satisfies it; tests supply a recorder.
type EventPublisher interface {
	Publish(ev notify.Event)
}

// LockController applies evaluator decisions to the account store. It makes a
// single conditional write per call and surfaces the store error; batch
// callers decide whether to skip-and-continue.
type LockController struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Events EventPublisher
}

// Apply routes a decision. no_action is a no-op; warnings are deduplicated to
// one per account per UTC day.
func (c *LockController) Apply(ctx context.Context, acct *models.TradingAccount, dec risk.Decision, now time.Time) error {
	if c == nil || c.Repo == nil || acct == nil {
		return nil
	}
	switch dec.Action {
	case risk.ActionLock:
		return c.Lock(ctx, acct, dec)
	case risk.ActionWarn:
		return c.warn(ctx, acct, dec, now)
	default:
		return nil
	}
}

// Lock sets the three lock fields in one conditional update. Re-locking with
// the same breaker and a same-or-earlier expiry is a no-op: locks do not
// stack. A version mismatch surfaces as repository.ErrVersionConflict.
func (c *LockController) Lock(ctx context.Context, acct *models.TradingAccount, dec risk.Decision) error {
	if c == nil || c.Repo == nil || acct == nil {
		return nil
	}
	if acct.TradingLockedUntil != nil &&
		acct.BreakerType == dec.Breaker &&
		!dec.Until.After(*acct.TradingLockedUntil) {
		return nil
	}
	until := dec.Until
	reason := dec.Reason
	if err := c.Repo.UpdateAccountLockState(ctx, acct.ID, acct.Version, &until, &reason, dec.Breaker); err != nil {
		return err
	}
	acct.TradingLockedUntil = &until
	acct.LockReason = &reason
	acct.BreakerType = dec.Breaker
	acct.Version++

	c.audit(ctx, acct, dec, false)
	c.publish(notify.Event{
		Type:      notify.EventLockApplied,
		UserID:    acct.UserID,
		AccountID: acct.ID,
		Title:     "Trading locked",
		Body:      dec.Reason,
		Severity:  dec.Severity,
	})
	return nil
}

// Unlock clears all three lock fields atomically. The account owner may call
// it at any time; expiry itself needs no write, reads compare locked_until to
// now.
func (c *LockController) Unlock(ctx context.Context, acct *models.TradingAccount) error {
	if c == nil || c.Repo == nil || acct == nil {
		return nil
	}
	if err := c.Repo.UpdateAccountLockState(ctx, acct.ID, acct.Version, nil, nil, models.BreakerNone); err != nil {
		return err
	}
	acct.TradingLockedUntil = nil
	acct.LockReason = nil
	acct.BreakerType = models.BreakerNone
	acct.Version++

	if err := c.Repo.InsertPsychologyLog(ctx, &models.PsychologyLog{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		EventType: "manual_unlock",
		Note:      "lock cleared by account owner",
		CreatedAt: time.Now().UTC(),
	}); err != nil && c.Logger != nil {
		c.Logger.Warn("unlock audit write failed", zap.Uint64("account_id", acct.ID), zap.Error(err))
	}
	c.publish(notify.Event{
		Type:      notify.EventUnlocked,
		UserID:    acct.UserID,
		AccountID: acct.ID,
		Title:     "Trading unlocked",
		Body:      "lock cleared by account owner",
		Severity:  "info",
	})
	return nil
}

func (c *LockController) warn(ctx context.Context, acct *models.TradingAccount, dec risk.Decision, now time.Time) error {
	if risk.SameUTCDay(acct.LossWarnedAt, now) {
		return nil
	}
	c.audit(ctx, acct, dec, false)
	if err := c.Repo.SetLossWarnedAt(ctx, acct.ID, now); err != nil {
		return err
	}
	warnedAt := now
	acct.LossWarnedAt = &warnedAt
	c.publish(notify.Event{
		Type:      notify.EventRiskWarning,
		UserID:    acct.UserID,
		AccountID: acct.ID,
		Title:     "Approaching daily loss limit",
		Body:      dec.Reason,
		Severity:  dec.Severity,
	})
	return nil
}

// audit appends one alert row per effective transition. Audit is best-effort:
// a failed write is logged and never rolls back the lock itself.
func (c *LockController) audit(ctx context.Context, acct *models.TradingAccount, dec risk.Decision, terminal bool) {
	details, _ := json.Marshal(map[string]any{
		"breaker_type": dec.Breaker,
		"until":        dec.Until,
	})
	err := c.Repo.InsertDrawdownAlert(ctx, &models.DrawdownAlert{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		AlertType: dec.AlertType,
		Severity:  dec.Severity,
		Message:   dec.Reason,
		Terminal:  terminal,
		Details:   datatypes.JSON(details),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil && c.Logger != nil {
		c.Logger.Warn("audit write failed",
			zap.Uint64("account_id", acct.ID),
			zap.String("alert_type", dec.AlertType),
			zap.Error(err),
		)
	}
}

func (c *LockController) publish(ev notify.Event) {
	if c.Events == nil {
		return
	}
	c.Events.Publish(ev)
}

// CheckAndApply is the circuit-breaker entry point used by the dashboard: it
// evaluates the account and, unless checkOnly, applies the outcome.
func (c *LockController) CheckAndApply(ctx context.Context, eval risk.Evaluator, acct *models.TradingAccount, checkOnly bool, now time.Time) (risk.Status, error) {
	if acct == nil {
		return risk.Status{}, fmt.Errorf("account is nil")
	}
	dec := eval.Evaluate(*acct, now)
	if !checkOnly {
		if err := c.Apply(ctx, acct, dec, now); err != nil {
			return risk.StatusOf(*acct, now), err
		}
	}
	return risk.StatusOf(*acct, now), nil
}
