package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"riskdesk/internal/models"
)

// ErrVersionConflict is returned by conditional account updates when the
// expected version no longer matches: another writer won, the caller decides
// whether to re-read and retry or to skip.
var ErrVersionConflict = errors.New("account version conflict")

type ListSignalsParams struct {
	Limit  int
	Offset int
	Symbol *string
	Status *string
}

type ListNotificationsParams struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

type ListAlertsParams struct {
	Limit     int
	Offset    int
	AlertType *string
	Since     *time.Time
}

type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Accounts.
	GetAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error)
	ListAccountsByUserID(ctx context.Context, userID string) ([]models.TradingAccount, error)
	ListActiveAccounts(ctx context.Context) ([]models.TradingAccount, error)
	ListActiveChallengeAccounts(ctx context.Context) ([]models.TradingAccount, error)
	ListActiveAccountsWithInactivityDeadline(ctx context.Context) ([]models.TradingAccount, error)
	CreateAccount(ctx context.Context, item *models.TradingAccount) error

	// Lock state: single conditional update of the three lock fields plus a
	// version bump; ErrVersionConflict when expectedVersion no longer holds.
	UpdateAccountLockState(ctx context.Context, id uint64, expectedVersion int64, until *time.Time, reason *string, breaker string) error
	FailAccount(ctx context.Context, id uint64, reason string) error

	// Daily bookkeeping.
	ResetAccountDaily(ctx context.Context, id uint64, startingEquity decimal.Decimal, at time.Time) error
	IncrementDaysTraded(ctx context.Context, id uint64) error
	UpdateAccountScaling(ctx context.Context, id uint64, multiplier float64, week int) error
	SetLossWarnedAt(ctx context.Context, id uint64, at time.Time) error
	SetDeadlineWarnedAt(ctx context.Context, id uint64, at time.Time) error
	SetInactivityWarnedAt(ctx context.Context, id uint64, at time.Time) error

	// Daily stats ledger (upsert keyed on account_id+date).
	GetDailyStats(ctx context.Context, accountID uint64, date time.Time) (*models.DailyStatsRecord, error)
	CreateDailyStatsIfAbsent(ctx context.Context, item *models.DailyStatsRecord) (bool, error)
	FinalizeDailyStats(ctx context.Context, id uint64, endingEquity decimal.Decimal, pnl decimal.Decimal, profitable bool, countsAsTradingDay bool) error
	ListDailyStats(ctx context.Context, accountID uint64, limit int) ([]models.DailyStatsRecord, error)

	// Audit trail (append-only).
	InsertDrawdownAlert(ctx context.Context, item *models.DrawdownAlert) error
	ListDrawdownAlerts(ctx context.Context, accountID uint64, params ListAlertsParams) ([]models.DrawdownAlert, error)
	DeleteDrawdownAlertsBefore(ctx context.Context, before time.Time) (int64, error)
	InsertPsychologyLog(ctx context.Context, item *models.PsychologyLog) error
	DeletePsychologyLogsBefore(ctx context.Context, before time.Time) (int64, error)

	// In-app notifications.
	InsertNotification(ctx context.Context, item *models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string, params ListNotificationsParams) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uint64, at time.Time) error

	// Push subscriptions.
	UpsertPushSubscription(ctx context.Context, item *models.PushSubscription) error
	ListPushSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error)
	DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error

	// Signals feed.
	InsertTradingSignal(ctx context.Context, item *models.TradingSignal) error
	ListTradingSignals(ctx context.Context, params ListSignalsParams) ([]models.TradingSignal, error)

	// Withdrawals.
	InsertWithdrawal(ctx context.Context, item *models.Withdrawal) error
	ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]models.Withdrawal, error)

	// System settings (feature switches).
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error

	// OTP login codes.
	InsertOTPCode(ctx context.Context, item *models.OTPCode) error
	GetLatestOTPCode(ctx context.Context, email string) (*models.OTPCode, error)
	CountOTPCodesSince(ctx context.Context, email string, since time.Time) (int64, error)
	IncrementOTPAttempts(ctx context.Context, id uint64) error
	ConsumeOTPCode(ctx context.Context, id uint64, at time.Time) error
}
