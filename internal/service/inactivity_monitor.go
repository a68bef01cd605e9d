package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"riskdesk/internal/models"
	"riskdesk/internal/notify"
	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
)

// InactivityMonitorService warns accounts approaching their inactivity
// deadline and fails accounts that crossed it. Failing an account is
// terminal: the account drops out of the active set, so re-runs cannot
// fail it twice.
type InactivityMonitorService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Events EventPublisher
}

type InactivityMonitorSummary struct {
	Success         bool     `json:"success"`
	AccountsChecked int      `json:"accountsChecked"`
	WarningsSent    int      `json:"warningsSent"`
	AccountsFailed  int      `json:"accountsFailed"`
	Warnings        []string `json:"warnings"`
}

var inactivityWarnBoundaries = map[int]struct{}{7: {}, 3: {}, 1: {}}

func (s *InactivityMonitorService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("inactivity monitor run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *InactivityMonitorService) RunOnce(ctx context.Context) (InactivityMonitorSummary, error) {
	return s.RunAt(ctx, time.Now().UTC())
}

func (s *InactivityMonitorService) RunAt(ctx context.Context, now time.Time) (InactivityMonitorSummary, error) {
	summary := InactivityMonitorSummary{Success: true, Warnings: []string{}}
	if s == nil || s.Repo == nil {
		return summary, nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureInactivityMonitor, true) {
		return summary, nil
	}

	accounts, err := s.Repo.ListActiveAccountsWithInactivityDeadline(ctx)
	if err != nil {
		summary.Success = false
		return summary, err
	}
	for i := range accounts {
		acct := accounts[i]
		if acct.InactivityDeadlineAt == nil {
			continue
		}
		summary.AccountsChecked++

		if now.After(*acct.InactivityDeadlineAt) {
			if err := s.failAccount(ctx, &acct, now); err != nil {
				if s.Logger != nil {
					s.Logger.Warn("inactivity failure skipped account",
						zap.Uint64("account_id", acct.ID),
						zap.Error(err),
					)
				}
				continue
			}
			summary.AccountsFailed++
			continue
		}

		days := risk.DaysRemaining(*acct.InactivityDeadlineAt, now)
		if _, hit := inactivityWarnBoundaries[days]; !hit {
			continue
		}
		if risk.SameUTCDay(acct.InactivityWarnedAt, now) {
			continue
		}
		msg, err := s.warnAccount(ctx, &acct, days, now)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("inactivity warning skipped account",
					zap.Uint64("account_id", acct.ID),
					zap.Error(err),
				)
			}
			continue
		}
		summary.WarningsSent++
		summary.Warnings = append(summary.Warnings, msg)
	}
	return summary, nil
}

func (s *InactivityMonitorService) warnAccount(ctx context.Context, acct *models.TradingAccount, days int, now time.Time) (string, error) {
	msg := fmt.Sprintf("account %d inactive: place a trade within %d day(s) or the account fails", acct.ID, days)

	if err := s.Repo.InsertDrawdownAlert(ctx, &models.DrawdownAlert{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		AlertType: risk.AlertInactivityWarning,
		Severity:  "warning",
		Message:   msg,
		CreatedAt: now,
	}); err != nil {
		return "", err
	}
	if err := s.Repo.SetInactivityWarnedAt(ctx, acct.ID, now); err != nil {
		return "", err
	}
	if s.Events != nil {
		s.Events.Publish(notify.Event{
			Type:      notify.EventInactivityWarning,
			UserID:    acct.UserID,
			AccountID: acct.ID,
			Title:     "Inactivity warning",
			Body:      msg,
			Severity:  "warning",
		})
	}
	return msg, nil
}

func (s *InactivityMonitorService) failAccount(ctx context.Context, acct *models.TradingAccount, now time.Time) error {
	reason := fmt.Sprintf("inactivity deadline passed at %s", acct.InactivityDeadlineAt.UTC().Format(time.RFC3339))

	if err := s.Repo.FailAccount(ctx, acct.ID, reason); err != nil {
		return err
	}
	// The terminal alert is written once; failed accounts never re-enter
	// the active set this loop reads from.
	if err := s.Repo.InsertDrawdownAlert(ctx, &models.DrawdownAlert{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		AlertType: risk.AlertInactivityBreach,
		Severity:  "critical",
		Message:   reason,
		Terminal:  true,
		CreatedAt: now,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("terminal alert write failed", zap.Uint64("account_id", acct.ID), zap.Error(err))
	}
	if s.Events != nil {
		s.Events.Publish(notify.Event{
			Type:      notify.EventAccountFailed,
			UserID:    acct.UserID,
			AccountID: acct.ID,
			Title:     "Account failed",
			Body:      reason,
			Severity:  "critical",
		})
	}
	if s.Logger != nil {
		s.Logger.Info("account failed for inactivity",
			zap.Uint64("account_id", acct.ID),
			zap.String("reason", reason),
		)
	}
	return nil
}
