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

// DeadlineMonitorService warns challenge accounts approaching their deadline.
// Warnings fire at exactly 7, 3 and 1 days remaining, once per UTC day per
// account; a deadline warning never locks the account.
type DeadlineMonitorService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Flags  *SystemSettingsService
	Events EventPublisher
}

type DeadlineMonitorSummary struct {
	Success               bool `json:"success"`
	AccountsChecked       int  `json:"accountsChecked"`
	AlertsSent            int  `json:"alertsSent"`
	NotificationsSent     int  `json:"notificationsSent"`
	PushNotificationsSent int  `json:"pushNotificationsSent"`
}

var deadlineWarnBoundaries = map[int]struct{}{7: {}, 3: {}, 1: {}}

func (s *DeadlineMonitorService) Run(ctx context.Context, interval time.Duration) error {
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
			s.Logger.Warn("deadline monitor run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *DeadlineMonitorService) RunOnce(ctx context.Context) (DeadlineMonitorSummary, error) {
	return s.RunAt(ctx, time.Now().UTC())
}

func (s *DeadlineMonitorService) RunAt(ctx context.Context, now time.Time) (DeadlineMonitorSummary, error) {
	summary := DeadlineMonitorSummary{Success: true}
	if s == nil || s.Repo == nil {
		return summary, nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureDeadlineMonitor, true) {
		return summary, nil
	}

	accounts, err := s.Repo.ListActiveChallengeAccounts(ctx)
	if err != nil {
		summary.Success = false
		return summary, err
	}
	for i := range accounts {
		acct := accounts[i]
		if acct.ChallengeDeadlineAt == nil {
			continue
		}
		summary.AccountsChecked++

		days := risk.DaysRemaining(*acct.ChallengeDeadlineAt, now)
		if _, hit := deadlineWarnBoundaries[days]; !hit {
			continue
		}
		if risk.SameUTCDay(acct.DeadlineWarnedAt, now) {
			continue
		}
		if err := s.warnAccount(ctx, &acct, days, now); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("deadline warning skipped account",
					zap.Uint64("account_id", acct.ID),
					zap.Error(err),
				)
			}
			continue
		}
		summary.AlertsSent++
		summary.NotificationsSent++
		summary.PushNotificationsSent++
	}
	return summary, nil
}

func (s *DeadlineMonitorService) warnAccount(ctx context.Context, acct *models.TradingAccount, days int, now time.Time) error {
	msg := fmt.Sprintf("challenge deadline in %d day(s): %s", days, acct.ChallengeDeadlineAt.UTC().Format("2006-01-02"))

	if err := s.Repo.InsertDrawdownAlert(ctx, &models.DrawdownAlert{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		AlertType: risk.AlertDeadlineWarning,
		Severity:  "warning",
		Message:   msg,
		CreatedAt: now,
	}); err != nil {
		return err
	}
	// Psychology trail is best-effort.
	if err := s.Repo.InsertPsychologyLog(ctx, &models.PsychologyLog{
		UserID:    acct.UserID,
		AccountID: acct.ID,
		EventType: "deadline_pressure",
		Note:      msg,
		CreatedAt: now,
	}); err != nil && s.Logger != nil {
		s.Logger.Warn("psychology log write failed", zap.Uint64("account_id", acct.ID), zap.Error(err))
	}
	if err := s.Repo.SetDeadlineWarnedAt(ctx, acct.ID, now); err != nil {
		return err
	}
	if s.Events != nil {
		s.Events.Publish(notify.Event{
			Type:      notify.EventDeadlineWarning,
			UserID:    acct.UserID,
			AccountID: acct.ID,
			Title:     "Challenge deadline approaching",
			Body:      msg,
			Severity:  "warning",
		})
	}
	return nil
}
