package service

import (
	"context"
	"testing"
	"time"

	"riskdesk/internal/models"
	"riskdesk/internal/notify"
	"riskdesk/internal/risk"
)

func TestInactivityMonitorWarnsAtBoundaries(t *testing.T) {
	repo := newStubRepo()
	rec := &eventRecorder{}
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	for _, days := range []int{7, 5, 3, 1} {
		acct := activeAccount(uint64(days))
		deadline := now.Add(time.Duration(days) * 24 * time.Hour)
		acct.InactivityDeadlineAt = &deadline
		if err := repo.CreateAccount(context.Background(), acct); err != nil {
			t.Fatalf("seed account %d: %v", days, err)
		}
	}

	svc := &InactivityMonitorService{Repo: repo, Events: rec}
	sum, err := svc.RunAt(context.Background(), now)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.AccountsChecked != 4 {
		t.Fatalf("accountsChecked = %d, want 4", sum.AccountsChecked)
	}
	if sum.WarningsSent != 3 || len(sum.Warnings) != 3 {
		t.Fatalf("warningsSent = %d warnings = %v", sum.WarningsSent, sum.Warnings)
	}
	if got := len(rec.byType(notify.EventInactivityWarning)); got != 3 {
		t.Fatalf("warning events = %d, want 3", got)
	}

	// Same-day re-run is quiet.
	sum, err = svc.RunAt(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if sum.WarningsSent != 0 {
		t.Fatalf("same-day re-run warned again: %+v", sum)
	}
}

func TestInactivityMonitorFailsPastDeadlineOnce(t *testing.T) {
	repo := newStubRepo()
	rec := &eventRecorder{}
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	acct := activeAccount(1)
	deadline := now.Add(-time.Hour)
	acct.InactivityDeadlineAt = &deadline
	if err := repo.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("seed account: %v", err)
	}

	svc := &InactivityMonitorService{Repo: repo, Events: rec}
	sum, err := svc.RunAt(context.Background(), now)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if sum.AccountsFailed != 1 {
		t.Fatalf("accountsFailed = %d, want 1", sum.AccountsFailed)
	}

	stored := repo.accounts[1]
	if stored.Status != models.AccountStatusFailed {
		t.Fatalf("status = %q, want failed", stored.Status)
	}
	if stored.FailureReason == nil {
		t.Fatalf("failure reason not recorded")
	}

	var terminal int
	for _, a := range repo.alerts {
		if a.Terminal && a.AlertType == risk.AlertInactivityBreach {
			terminal++
		}
	}
	if terminal != 1 {
		t.Fatalf("terminal alerts = %d, want 1", terminal)
	}
	if got := len(rec.byType(notify.EventAccountFailed)); got != 1 {
		t.Fatalf("failure events = %d, want 1", got)
	}

	// Failed accounts drop out of the active set: a re-run writes nothing.
	sum, err = svc.RunAt(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("re-run: %v", err)
	}
	if sum.AccountsChecked != 0 || sum.AccountsFailed != 0 {
		t.Fatalf("re-run touched the failed account: %+v", sum)
	}
	terminal = 0
	for _, a := range repo.alerts {
		if a.Terminal {
			terminal++
		}
	}
	if terminal != 1 {
		t.Fatalf("re-run wrote a second terminal alert")
	}
}
