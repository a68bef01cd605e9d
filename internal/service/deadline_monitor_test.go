package service

import (
	"context"
	"testing"
	"time"

	"riskdesk/internal/notify"
	"riskdesk/internal/risk"
)

func TestDeadlineMonitorFiresOnExactBoundariesOnly(t *testing.T) {
	repo := newStubRepo()
	rec := &eventRecorder{}
	now := time.Date(2026, 3, 4, 10, 15, 0, 0, time.UTC)

	// One account per days-remaining value from 0 to 8.
	for days := 0; days <= 8; days++ {
		acct := activeAccount(uint64(days + 1))
		deadline := now.Add(time.Duration(days) * 24 * time.Hour)
		acct.ChallengeDeadlineAt = &deadline
		if err := repo.CreateAccount(context.Background(), acct); err != nil {
			t.Fatalf("seed account %d: %v", days, err)
		}
	}

	svc := &DeadlineMonitorService{Repo: repo, Events: rec}
	sum, err := svc.RunAt(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.AccountsChecked != 9 {
		t.Fatalf("accountsChecked = %d, want 9", sum.AccountsChecked)
	}
	// Only the 7, 3 and 1 day boundaries warn; 6, 5, 4, 2 and 0 stay quiet.
	if sum.AlertsSent != 3 {
		t.Fatalf("alertsSent = %d, want 3", sum.AlertsSent)
	}
	if got := len(rec.byType(notify.EventDeadlineWarning)); got != 3 {
		t.Fatalf("deadline events = %d, want 3", got)
	}
	for _, a := range repo.alerts {
		if a.AlertType != risk.AlertDeadlineWarning {
			t.Fatalf("unexpected alert type %q", a.AlertType)
		}
	}
}

func TestDeadlineMonitorDedupesSameDay(t *testing.T) {
	repo := newStubRepo()
	rec := &eventRecorder{}
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	acct := activeAccount(1)
	deadline := now.Add(3 * 24 * time.Hour)
	acct.ChallengeDeadlineAt = &deadline
	if err := repo.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	svc := &DeadlineMonitorService{Repo: repo, Events: rec}
	if _, err := svc.RunAt(context.Background(), now); err != nil {
		t.Fatalf("first run: %v", err)
	}
	sum, err := svc.RunAt(context.Background(), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.AlertsSent != 0 {
		t.Fatalf("same-day re-run warned again: %+v", sum)
	}
	if got := len(rec.byType(notify.EventDeadlineWarning)); got != 1 {
		t.Fatalf("deadline events = %d, want 1", got)
	}
}

func TestDeadlineMonitorNeverLocks(t *testing.T) {
	repo := newStubRepo()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	acct := activeAccount(1)
	deadline := now.Add(24 * time.Hour)
	acct.ChallengeDeadlineAt = &deadline
	if err := repo.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	svc := &DeadlineMonitorService{Repo: repo}
	if _, err := svc.RunAt(context.Background(), now); err != nil {
		t.Fatalf("run: %v", err)
	}
	stored := repo.accounts[1]
	if stored.TradingLockedUntil != nil || stored.Status != "active" {
		t.Fatalf("deadline warning changed lock or status: %+v", stored)
	}
	if len(repo.psychLogs) != 1 || repo.psychLogs[0].EventType != "deadline_pressure" {
		t.Fatalf("expected one deadline_pressure log, got %+v", repo.psychLogs)
	}
}
