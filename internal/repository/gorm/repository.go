package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"riskdesk/internal/models"
	"riskdesk/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- accounts ---------------------------------------------------------------

func (s *Store) GetAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.TradingAccount
	err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAccountsByUserID(ctx context.Context, userID string) ([]models.TradingAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingAccount
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("created_at asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingAccount
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AccountStatusActive).
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveChallengeAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingAccount
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AccountStatusActive).
		Where("challenge_deadline_at IS NOT NULL").
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListActiveAccountsWithInactivityDeadline(ctx context.Context) ([]models.TradingAccount, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.TradingAccount
	err := s.db.WithContext(ctx).
		Where("status = ?", models.AccountStatusActive).
		Where("inactivity_deadline_at IS NOT NULL").
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateAccount(ctx context.Context, item *models.TradingAccount) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateAccountLockState(ctx context.Context, id uint64, expectedVersion int64, until *time.Time, reason *string, breaker string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Where("version = ?", expectedVersion).
		Updates(map[string]any{
			"trading_locked_until": until,
			"lock_reason":          reason,
			"breaker_type":         breaker,
			"version":              gorm.Expr("version + 1"),
			"updated_at":           time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrVersionConflict
	}
	return nil
}

func (s *Store) FailAccount(ctx context.Context, id uint64, reason string) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Where("status = ?", models.AccountStatusActive).
		Updates(map[string]any{
			"status":         models.AccountStatusFailed,
			"failure_reason": reason,
			"updated_at":     time.Now().UTC(),
		}).Error
}

func (s *Store) ResetAccountDaily(ctx context.Context, id uint64, startingEquity decimal.Decimal, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"daily_starting_equity":   startingEquity,
			"daily_pnl":               decimal.Zero,
			"daily_drawdown_used_pct": 0,
			"trades_today":            0,
			"last_daily_reset_at":     at,
			"updated_at":              at,
		}).Error
}

func (s *Store) IncrementDaysTraded(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		UpdateColumn("days_traded", gorm.Expr("days_traded + 1")).Error
}

func (s *Store) UpdateAccountScaling(ctx context.Context, id uint64, multiplier float64, week int) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"scaling_multiplier": multiplier,
			"scaling_week":       week,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (s *Store) SetLossWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	return s.setWarnStamp(ctx, id, "loss_warned_at", at)
}

func (s *Store) SetDeadlineWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	return s.setWarnStamp(ctx, id, "deadline_warned_at", at)
}

func (s *Store) SetInactivityWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	return s.setWarnStamp(ctx, id, "inactivity_warned_at", at)
}

func (s *Store) setWarnStamp(ctx context.Context, id uint64, column string, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.TradingAccount{}).
		Where("id = ?", id).
		UpdateColumn(column, at).Error
}

// --- daily stats ------------------------------------------------------------

func (s *Store) GetDailyStats(ctx context.Context, accountID uint64, date time.Time) (*models.DailyStatsRecord, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return nil, nil
	}
	var item models.DailyStatsRecord
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Where("date = ?", dateOnly(date)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateDailyStatsIfAbsent(ctx context.Context, item *models.DailyStatsRecord) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	item.Date = dateOnly(item.Date)
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "date"}},
		DoNothing: true,
	}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) FinalizeDailyStats(ctx context.Context, id uint64, endingEquity decimal.Decimal, pnl decimal.Decimal, profitable bool, countsAsTradingDay bool) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.DailyStatsRecord{}).
		Where("id = ?", id).
		Where("finalized = ?", false).
		Updates(map[string]any{
			"ending_equity":         endingEquity,
			"pnl":                   pnl,
			"profitable":            profitable,
			"counts_as_trading_day": countsAsTradingDay,
			"finalized":             true,
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (s *Store) ListDailyStats(ctx context.Context, accountID uint64, limit int) ([]models.DailyStatsRecord, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return nil, nil
	}
	limit = normalizeLimit(limit, 30)
	var items []models.DailyStatsRecord
	err := s.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("date desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- audit trail ------------------------------------------------------------

func (s *Store) InsertDrawdownAlert(ctx context.Context, item *models.DrawdownAlert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListDrawdownAlerts(ctx context.Context, accountID uint64, params repository.ListAlertsParams) ([]models.DrawdownAlert, error) {
	if s == nil || s.db == nil || accountID == 0 {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.DrawdownAlert{}).
		Where("account_id = ?", accountID)
	if params.AlertType != nil && strings.TrimSpace(*params.AlertType) != "" {
		query = query.Where("alert_type = ?", strings.TrimSpace(*params.AlertType))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.DrawdownAlert
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeleteDrawdownAlertsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.DrawdownAlert{})
	return res.RowsAffected, res.Error
}

func (s *Store) InsertPsychologyLog(ctx context.Context, item *models.PsychologyLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) DeletePsychologyLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	if s == nil || s.db == nil || before.IsZero() {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.PsychologyLog{})
	return res.RowsAffected, res.Error
}

// --- notifications ----------------------------------------------------------

func (s *Store) InsertNotification(ctx context.Context, item *models.Notification) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListNotificationsByUser(ctx context.Context, userID string, params repository.ListNotificationsParams) ([]models.Notification, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", strings.TrimSpace(userID))
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Notification
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkNotificationRead(ctx context.Context, id uint64, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Where("read_at IS NULL").
		UpdateColumn("read_at", at).Error
}

// --- push subscriptions -----------------------------------------------------

func (s *Store) UpsertPushSubscription(ctx context.Context, item *models.PushSubscription) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Endpoint) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(item).Error
}

func (s *Store) ListPushSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PushSubscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	if s == nil || s.db == nil || strings.TrimSpace(endpoint) == "" {
		return nil
	}
	return s.db.WithContext(ctx).
		Where("endpoint = ?", strings.TrimSpace(endpoint)).
		Delete(&models.PushSubscription{}).Error
}

// --- signals feed -----------------------------------------------------------

func (s *Store) InsertTradingSignal(ctx context.Context, item *models.TradingSignal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListTradingSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.TradingSignal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TradingSignal{})
	if params.Symbol != nil && strings.TrimSpace(*params.Symbol) != "" {
		query = query.Where("symbol = ?", strings.ToUpper(strings.TrimSpace(*params.Symbol)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.TradingSignal
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- withdrawals ------------------------------------------------------------

func (s *Store) InsertWithdrawal(ctx context.Context, item *models.Withdrawal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]models.Withdrawal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit = normalizeLimit(limit, 50)
	var items []models.Withdrawal
	err := s.db.WithContext(ctx).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("requested_at desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- system settings --------------------------------------------------------

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).First(&item, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "description", "updated_at"}),
	}).Create(item).Error
}

// --- OTP codes --------------------------------------------------------------

func (s *Store) InsertOTPCode(ctx context.Context, item *models.OTPCode) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetLatestOTPCode(ctx context.Context, email string) (*models.OTPCode, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.OTPCode
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CountOTPCodesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

func (s *Store) IncrementOTPAttempts(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error
}

func (s *Store) ConsumeOTPCode(ctx context.Context, id uint64, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.OTPCode{}).
		Where("id = ?", id).
		Where("consumed_at IS NULL").
		UpdateColumn("consumed_at", at).Error
}

// --- helpers ----------------------------------------------------------------

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
