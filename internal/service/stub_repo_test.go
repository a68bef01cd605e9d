package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"riskdesk/internal/models"
	"riskdesk/internal/notify"
	"riskdesk/internal/repository"
)

// stubRepo is an in-memory Repository for service tests. Only the behavior
// the services depend on is modeled; anything else is a straight map write.
type stubRepo struct {
	mu sync.Mutex

	accounts map[uint64]*models.TradingAccount
	stats    map[uint64]*models.DailyStatsRecord
	nextStat uint64

	alerts     []models.DrawdownAlert
	psychLogs  []models.PsychologyLog
	notifs     []models.Notification
	subs       map[string]*models.PushSubscription
	signals    []models.TradingSignal
	withdraws  []models.Withdrawal
	settings   map[string]*models.SystemSetting
	otps       map[uint64]*models.OTPCode
	nextOTP    uint64
	lockErr    error
	warnStamps int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		accounts: map[uint64]*models.TradingAccount{},
		stats:    map[uint64]*models.DailyStatsRecord{},
		subs:     map[string]*models.PushSubscription{},
		settings: map[string]*models.SystemSetting{},
		otps:     map[uint64]*models.OTPCode{},
	}
}

var _ repository.Repository = (*stubRepo)(nil)

func (r *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (r *stubRepo) GetAccountByID(ctx context.Context, id uint64) (*models.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *acct
	return &cp, nil
}

func (r *stubRepo) ListAccountsByUserID(ctx context.Context, userID string) ([]models.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TradingAccount
	for _, acct := range r.accounts {
		if acct.UserID == userID {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (r *stubRepo) ListActiveAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TradingAccount
	for _, acct := range r.accounts {
		if acct.Status == models.AccountStatusActive {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (r *stubRepo) ListActiveChallengeAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TradingAccount
	for _, acct := range r.accounts {
		if acct.Status == models.AccountStatusActive && acct.ChallengeDeadlineAt != nil {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (r *stubRepo) ListActiveAccountsWithInactivityDeadline(ctx context.Context) ([]models.TradingAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TradingAccount
	for _, acct := range r.accounts {
		if acct.Status == models.AccountStatusActive && acct.InactivityDeadlineAt != nil {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (r *stubRepo) CreateAccount(ctx context.Context, item *models.TradingAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.accounts[item.ID] = &cp
	return nil
}

func (r *stubRepo) UpdateAccountLockState(ctx context.Context, id uint64, expectedVersion int64, until *time.Time, reason *string, breaker string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lockErr != nil {
		return r.lockErr
	}
	acct, ok := r.accounts[id]
	if !ok || acct.Version != expectedVersion {
		return repository.ErrVersionConflict
	}
	acct.TradingLockedUntil = until
	acct.LockReason = reason
	acct.BreakerType = breaker
	acct.Version++
	return nil
}

func (r *stubRepo) FailAccount(ctx context.Context, id uint64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return nil
	}
	acct.Status = models.AccountStatusFailed
	acct.FailureReason = &reason
	return nil
}

func (r *stubRepo) ResetAccountDaily(ctx context.Context, id uint64, startingEquity decimal.Decimal, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[id]
	if !ok {
		return nil
	}
	acct.DailyStartingEquity = startingEquity
	acct.DailyPnL = decimal.Zero
	acct.DailyDrawdownUsedPct = 0
	acct.TradesToday = 0
	stamp := at
	acct.LastDailyResetAt = &stamp
	return nil
}

func (r *stubRepo) IncrementDaysTraded(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		acct.DaysTraded++
	}
	return nil
}

func (r *stubRepo) UpdateAccountScaling(ctx context.Context, id uint64, multiplier float64, week int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		acct.ScalingMultiplier = multiplier
		acct.ScalingWeek = week
	}
	return nil
}

func (r *stubRepo) SetLossWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		stamp := at
		acct.LossWarnedAt = &stamp
		r.warnStamps++
	}
	return nil
}

func (r *stubRepo) SetDeadlineWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		stamp := at
		acct.DeadlineWarnedAt = &stamp
	}
	return nil
}

func (r *stubRepo) SetInactivityWarnedAt(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if acct, ok := r.accounts[id]; ok {
		stamp := at
		acct.InactivityWarnedAt = &stamp
	}
	return nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (r *stubRepo) GetDailyStats(ctx context.Context, accountID uint64, date time.Time) (*models.DailyStatsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.stats {
		if rec.AccountID == accountID && sameDate(rec.Date, date) {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *stubRepo) CreateDailyStatsIfAbsent(ctx context.Context, item *models.DailyStatsRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.stats {
		if rec.AccountID == item.AccountID && sameDate(rec.Date, item.Date) {
			return false, nil
		}
	}
	r.nextStat++
	cp := *item
	cp.ID = r.nextStat
	r.stats[cp.ID] = &cp
	return true, nil
}

func (r *stubRepo) FinalizeDailyStats(ctx context.Context, id uint64, endingEquity decimal.Decimal, pnl decimal.Decimal, profitable bool, countsAsTradingDay bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.stats[id]
	if !ok || rec.Finalized {
		return nil
	}
	rec.EndingEquity = endingEquity
	rec.PnL = pnl
	rec.Profitable = profitable
	rec.CountsAsTradingDay = countsAsTradingDay
	rec.Finalized = true
	return nil
}

func (r *stubRepo) ListDailyStats(ctx context.Context, accountID uint64, limit int) ([]models.DailyStatsRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DailyStatsRecord
	for _, rec := range r.stats {
		if rec.AccountID == accountID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *stubRepo) InsertDrawdownAlert(ctx context.Context, item *models.DrawdownAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, *item)
	return nil
}

func (r *stubRepo) ListDrawdownAlerts(ctx context.Context, accountID uint64, params repository.ListAlertsParams) ([]models.DrawdownAlert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DrawdownAlert
	for _, a := range r.alerts {
		if a.AccountID == accountID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *stubRepo) DeleteDrawdownAlertsBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.DrawdownAlert
	var n int64
	for _, a := range r.alerts {
		if a.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.alerts = kept
	return n, nil
}

func (r *stubRepo) InsertPsychologyLog(ctx context.Context, item *models.PsychologyLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.psychLogs = append(r.psychLogs, *item)
	return nil
}

func (r *stubRepo) DeletePsychologyLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []models.PsychologyLog
	var n int64
	for _, p := range r.psychLogs {
		if p.CreatedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, p)
	}
	r.psychLogs = kept
	return n, nil
}

func (r *stubRepo) InsertNotification(ctx context.Context, item *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifs = append(r.notifs, *item)
	return nil
}

func (r *stubRepo) ListNotificationsByUser(ctx context.Context, userID string, params repository.ListNotificationsParams) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notifs {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *stubRepo) MarkNotificationRead(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifs {
		if r.notifs[i].ID == id {
			stamp := at
			r.notifs[i].ReadAt = &stamp
		}
	}
	return nil
}

func (r *stubRepo) UpsertPushSubscription(ctx context.Context, item *models.PushSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.subs[item.Endpoint] = &cp
	return nil
}

func (r *stubRepo) ListPushSubscriptionsByUser(ctx context.Context, userID string) ([]models.PushSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PushSubscription
	for _, s := range r.subs {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubRepo) DeletePushSubscriptionByEndpoint(ctx context.Context, endpoint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, endpoint)
	return nil
}

func (r *stubRepo) InsertTradingSignal(ctx context.Context, item *models.TradingSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, *item)
	return nil
}

func (r *stubRepo) ListTradingSignals(ctx context.Context, params repository.ListSignalsParams) ([]models.TradingSignal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TradingSignal(nil), r.signals...), nil
}

func (r *stubRepo) InsertWithdrawal(ctx context.Context, item *models.Withdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdraws = append(r.withdraws, *item)
	return nil
}

func (r *stubRepo) ListWithdrawalsByUser(ctx context.Context, userID string, limit int) ([]models.Withdrawal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Withdrawal
	for _, w := range r.withdraws {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *stubRepo) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

func (r *stubRepo) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	r.settings[item.Key] = &cp
	return nil
}

func (r *stubRepo) InsertOTPCode(ctx context.Context, item *models.OTPCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOTP++
	cp := *item
	cp.ID = r.nextOTP
	r.otps[cp.ID] = &cp
	item.ID = cp.ID
	return nil
}

func (r *stubRepo) GetLatestOTPCode(ctx context.Context, email string) (*models.OTPCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *models.OTPCode
	for _, c := range r.otps {
		if c.Email != email {
			continue
		}
		if latest == nil || c.ID > latest.ID {
			latest = c
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (r *stubRepo) CountOTPCodesSince(ctx context.Context, email string, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.otps {
		if c.Email == email && !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *stubRepo) IncrementOTPAttempts(ctx context.Context, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.otps[id]; ok {
		c.Attempts++
	}
	return nil
}

func (r *stubRepo) ConsumeOTPCode(ctx context.Context, id uint64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.otps[id]; ok {
		stamp := at
		c.ConsumedAt = &stamp
	}
	return nil
}

// eventRecorder collects published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (e *eventRecorder) Publish(ev notify.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
}

func (e *eventRecorder) byType(t string) []notify.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []notify.Event
	for _, ev := range e.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
