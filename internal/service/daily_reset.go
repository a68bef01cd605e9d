package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"riskdesk/internal/models"
	"riskdesk/internal/repository"
	"riskdesk/internal/risk"
)

// DailyResetService rolls every active account over to a new trading day:
// finalizes yesterday's ledger row, seeds today's, resets the account's daily
// fields, advances the weekly scaling multiplier on Mondays, and prunes old
// audit rows. Safe to re-run within the same UTC day.
type DailyResetService struct {
	Repo   repository.Repository
	Logger *zap.Logger
	Flags  *SystemSettingsService

	AlertRetentionDays      int
	PsychologyRetentionDays int
}

type DailyResetSummary struct {
	Processed         int    `json:"processed"`
	DailyStatsCreated int    `json:"dailyStatsCreated"`
	ScalingUpdates    int    `json:"scalingUpdates"`
	Date              string `json:"date"`
}

func (s *DailyResetService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("daily reset run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *DailyResetService) RunOnce(ctx context.Context) (DailyResetSummary, error) {
	return s.RunAt(ctx, time.Now().UTC())
}

func (s *DailyResetService) RunAt(ctx context.Context, now time.Time) (DailyResetSummary, error) {
	summary := DailyResetSummary{Date: now.Format("2006-01-02")}
	if s == nil || s.Repo == nil {
		return summary, nil
	}
	if s.Flags != nil && !s.Flags.IsEnabled(ctx, FeatureDailyReset, true) {
		return summary, nil
	}

	accounts, err := s.Repo.ListActiveAccounts(ctx)
	if err != nil {
		return summary, err
	}
	for i := range accounts {
		acct := accounts[i]
		summary.Processed++
		created, scaled, err := s.resetAccount(ctx, &acct, now)
		if err != nil {
			if s.Logger != nil {
				s.Logger.Warn("daily reset skipped account",
					zap.Uint64("account_id", acct.ID),
					zap.Error(err),
				)
			}
			continue
		}
		if created {
			summary.DailyStatsCreated++
		}
		if scaled {
			summary.ScalingUpdates++
		}
	}

	s.prune(ctx, now)
	return summary, nil
}

func (s *DailyResetService) resetAccount(ctx context.Context, acct *models.TradingAccount, now time.Time) (created bool, scaled bool, err error) {
	// Already rolled over today: re-running must not reset fields again or
	// double-count days_traded.
	if risk.SameUTCDay(acct.LastDailyResetAt, now) {
		return false, false, nil
	}

	yesterday := now.AddDate(0, 0, -1)
	prev, err := s.Repo.GetDailyStats(ctx, acct.ID, yesterday)
	if err != nil {
		return false, false, err
	}
	if prev != nil && !prev.Finalized {
		pnl := acct.CurrentEquity.Sub(prev.StartingEquity)
		counts := prev.TradesCount > 0
		if err := s.Repo.FinalizeDailyStats(ctx, prev.ID, acct.CurrentEquity, pnl, pnl.GreaterThan(decimal.Zero), counts); err != nil {
			return false, false, err
		}
		// The finalized flag guards the increment: a second run the same day
		// finds the row finalized and never gets here.
		if counts {
			if err := s.Repo.IncrementDaysTraded(ctx, acct.ID); err != nil {
				return false, false, err
			}
		}
	}

	created, err = s.Repo.CreateDailyStatsIfAbsent(ctx, &models.DailyStatsRecord{
		UserID:         acct.UserID,
		AccountID:      acct.ID,
		Date:           now,
		StartingEquity: acct.CurrentEquity,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return false, false, err
	}

	if err := s.Repo.ResetAccountDaily(ctx, acct.ID, acct.CurrentEquity, now); err != nil {
		return created, false, err
	}

	// First three Mondays step the scaling multiplier 0.5 -> 0.75 -> 1.0.
	if now.Weekday() == time.Monday && acct.ScalingMultiplier < 1.0 {
		week := acct.ScalingWeek + 1
		if err := s.Repo.UpdateAccountScaling(ctx, acct.ID, scalingMultiplierForWeek(week), week); err != nil {
			return created, false, err
		}
		scaled = true
	}
	return created, scaled, nil
}

func scalingMultiplierForWeek(week int) float64 {
	switch {
	case week <= 1:
		return 0.5
	case week == 2:
		return 0.75
	default:
		return 1.0
	}
}

func (s *DailyResetService) prune(ctx context.Context, now time.Time) {
	alertDays := s.AlertRetentionDays
	if alertDays <= 0 {
		alertDays = 90
	}
	psychDays := s.PsychologyRetentionDays
	if psychDays <= 0 {
		psychDays = 30
	}
	if n, err := s.Repo.DeleteDrawdownAlertsBefore(ctx, now.AddDate(0, 0, -alertDays)); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("alert prune failed", zap.Error(err))
		}
	} else if n > 0 && s.Logger != nil {
		s.Logger.Info("pruned drawdown alerts", zap.Int64("count", n))
	}
	if n, err := s.Repo.DeletePsychologyLogsBefore(ctx, now.AddDate(0, 0, -psychDays)); err != nil {
		if s.Logger != nil {
			s.Logger.Warn("psychology prune failed", zap.Error(err))
		}
	} else if n > 0 && s.Logger != nil {
		s.Logger.Info("pruned psychology logs", zap.Int64("count", n))
	}
}
