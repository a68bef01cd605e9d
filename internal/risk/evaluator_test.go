package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"riskdesk/internal/models"
)

func account() models.TradingAccount {
	return models.TradingAccount{
		ID:                  1,
		UserID:              "user-1",
		Status:              models.AccountStatusActive,
		StartingBalance:     decimal.NewFromInt(100000),
		CurrentEquity:       decimal.NewFromInt(100000),
		DailyStartingEquity: decimal.NewFromInt(100000),
		BreakerType:         models.BreakerNone,
	}
}

func TestDailyLossPct(t *testing.T) {
	acct := account()
	acct.CurrentEquity = decimal.NewFromInt(94000)
	if got := DailyLossPct(acct); got != 6 {
		t.Fatalf("DailyLossPct = %v, want 6", got)
	}

	// Gains clamp to zero, never negative loss.
	acct.CurrentEquity = decimal.NewFromInt(105000)
	if got := DailyLossPct(acct); got != 0 {
		t.Fatalf("DailyLossPct on gain = %v, want 0", got)
	}

	// Zero starting equity means the rule is skipped, not a division error.
	acct.DailyStartingEquity = decimal.Zero
	if got := DailyLossPct(acct); got != 0 {
		t.Fatalf("DailyLossPct with zero start = %v, want 0", got)
	}
}

func TestEvaluateDailyLossBreach(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	acct := account()
	acct.PersonalDailyLossPct = 3
	acct.CurrentEquity = decimal.NewFromInt(94000)

	dec := eval.Evaluate(acct, now)
	if dec.Action != ActionLock || dec.Breaker != models.BreakerDailyLoss {
		t.Fatalf("decision = %+v, want daily_loss lock", dec)
	}
	want := time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)
	if !dec.Until.Equal(want) {
		t.Fatalf("until = %v, want %v", dec.Until, want)
	}
	if dec.AlertType != AlertDailyLossBreach || dec.Severity != "critical" {
		t.Fatalf("alert metadata wrong: %+v", dec)
	}
}

func TestEvaluateWarnAtSeventyPercentUsage(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	acct := account()
	acct.PersonalDailyLossPct = 4
	// 3% loss = 75% of the 4% limit.
	acct.CurrentEquity = decimal.NewFromInt(97000)

	dec := eval.Evaluate(acct, now)
	if dec.Action != ActionWarn || dec.AlertType != AlertDailyLossWarning {
		t.Fatalf("decision = %+v, want warn", dec)
	}

	// Well under the threshold stays quiet.
	acct.CurrentEquity = decimal.NewFromInt(97500)
	if dec := eval.Evaluate(acct, now); dec.Action != ActionNone {
		t.Fatalf("decision below threshold = %+v, want no_action", dec)
	}
}

func TestEvaluateZeroLimitSkipsRule(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	acct := account()
	acct.PersonalDailyLossPct = 0
	acct.CurrentEquity = decimal.NewFromInt(50000)
	if dec := eval.Evaluate(acct, now); dec.Action != ActionNone {
		t.Fatalf("decision with no limit = %+v, want no_action", dec)
	}
}

func TestEvaluateProfitTargetLock(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	acct := account()
	acct.LockAfterTarget = true
	acct.ProfitTargetUSD = decimal.NewFromInt(500)
	acct.DailyPnL = decimal.NewFromInt(520)

	dec := eval.Evaluate(acct, now)
	if dec.Action != ActionLock || dec.Breaker != models.BreakerProfitLock {
		t.Fatalf("decision = %+v, want profit_lock", dec)
	}

	// Same profit without opt-in is left alone.
	acct.LockAfterTarget = false
	if dec := eval.Evaluate(acct, now); dec.Action != ActionNone {
		t.Fatalf("decision without opt-in = %+v, want no_action", dec)
	}
}

func TestEvaluateSkipsLockedAndInactiveAccounts(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	acct := account()
	acct.PersonalDailyLossPct = 3
	acct.CurrentEquity = decimal.NewFromInt(90000)
	until := now.Add(time.Hour)
	acct.TradingLockedUntil = &until
	acct.BreakerType = models.BreakerDailyLoss
	if dec := eval.Evaluate(acct, now); dec.Action != ActionNone {
		t.Fatalf("locked account re-evaluated: %+v", dec)
	}

	acct.TradingLockedUntil = nil
	acct.Status = models.AccountStatusFailed
	if dec := eval.Evaluate(acct, now); dec.Action != ActionNone {
		t.Fatalf("failed account evaluated: %+v", dec)
	}
}

func TestKillSwitchDurations(t *testing.T) {
	eval := Evaluator{}
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)

	cases := []struct {
		option string
		want   time.Time
	}{
		{"30m", now.Add(30 * time.Minute)},
		{"1h", now.Add(time.Hour)},
		{"2h", now.Add(2 * time.Hour)},
		{"eod", time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		dec, err := eval.KillSwitch(c.option, now)
		if err != nil {
			t.Fatalf("KillSwitch(%q): %v", c.option, err)
		}
		if dec.Breaker != models.BreakerManual || !dec.Until.Equal(c.want) {
			t.Fatalf("KillSwitch(%q) = %+v, want until %v", c.option, dec, c.want)
		}
	}
	if _, err := eval.KillSwitch("4h", now); err == nil {
		t.Fatalf("unknown duration accepted")
	}
}

func TestIsLockedLazyExpiry(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	until := now.Add(30 * time.Minute)

	if !IsLocked(&until, now) {
		t.Fatalf("fresh lock reported unlocked")
	}
	if !IsLocked(&until, now.Add(29*time.Minute)) {
		t.Fatalf("lock expired early")
	}
	// One minute past expiry: unlocked with no write anywhere.
	if IsLocked(&until, now.Add(31*time.Minute)) {
		t.Fatalf("lock still held past expiry")
	}
	if IsLocked(nil, now) {
		t.Fatalf("nil lock reported locked")
	}
}

func TestNextTradingDayClose(t *testing.T) {
	// Before the close: today's boundary.
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	want := time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)
	if got := NextTradingDayClose(now, 21); !got.Equal(want) {
		t.Fatalf("NextTradingDayClose = %v, want %v", got, want)
	}

	// Exactly at the close rolls to tomorrow.
	now = time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)
	want = time.Date(2026, 3, 5, 21, 0, 0, 0, time.UTC)
	if got := NextTradingDayClose(now, 21); !got.Equal(want) {
		t.Fatalf("NextTradingDayClose at boundary = %v, want %v", got, want)
	}

	// After the close rolls to tomorrow.
	now = time.Date(2026, 3, 4, 22, 30, 0, 0, time.UTC)
	if got := NextTradingDayClose(now, 21); !got.Equal(want) {
		t.Fatalf("NextTradingDayClose after close = %v, want %v", got, want)
	}
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	if got := DaysRemaining(now.Add(7*24*time.Hour), now); got != 7 {
		t.Fatalf("DaysRemaining 7d = %d", got)
	}
	// A partial day rounds up.
	if got := DaysRemaining(now.Add(6*24*time.Hour+time.Hour), now); got != 7 {
		t.Fatalf("DaysRemaining 6d1h = %d, want 7", got)
	}
	if got := DaysRemaining(now.Add(-time.Hour), now); got > 0 {
		t.Fatalf("passed deadline = %d, want <= 0", got)
	}
}

func TestSameUTCDay(t *testing.T) {
	morning := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 5, 0, 30, 0, 0, time.UTC)

	if !SameUTCDay(&morning, evening) {
		t.Fatalf("same calendar day not detected")
	}
	// Less than 24h apart but different dates.
	if SameUTCDay(&evening, nextDay) {
		t.Fatalf("date change not detected")
	}
	if SameUTCDay(nil, evening) {
		t.Fatalf("nil stamp treated as same day")
	}
}

func TestStatusOfClampsUsage(t *testing.T) {
	now := time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)
	acct := account()
	acct.PersonalDailyLossPct = 3
	acct.CurrentEquity = decimal.NewFromInt(90000)

	st := StatusOf(acct, now)
	if st.DailyLossPct != 10 {
		t.Fatalf("daily loss = %v, want 10", st.DailyLossPct)
	}
	if st.LimitUsagePct != 100 {
		t.Fatalf("usage = %v, want clamped 100", st.LimitUsagePct)
	}
	if st.IsLocked {
		t.Fatalf("status reports locked for an unlocked account")
	}
}
