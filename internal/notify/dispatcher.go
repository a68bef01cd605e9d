package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Event describes a risk outcome to broadcast. Publishing is decoupled from
// the state change that produced it: delivery failures never reach the
// lock/reset path.
type Event struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	AccountID uint64 `json:"account_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Severity  string `json:"severity"`
}

const (
	EventLockApplied       = "lock_applied"
	EventUnlocked          = "unlocked"
	EventRiskWarning       = "risk_warning"
	EventDeadlineWarning   = "deadline_warning"
	EventInactivityWarning = "inactivity_warning"
	EventAccountFailed     = "account_failed"
)

// Channel is one delivery backend. Send is best-effort; errors are logged by
// the dispatcher and swallowed.
type Channel interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

type Dispatcher struct {
	Logger   *zap.Logger
	Channels []Channel
	Timeout  time.Duration

	queue chan Event
}

func NewDispatcher(logger *zap.Logger, queueSize int, timeout time.Duration, channels ...Channel) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		Logger:   logger,
		Channels: channels,
		Timeout:  timeout,
		queue:    make(chan Event, queueSize),
	}
}

// Publish enqueues without blocking. A full queue drops the event: losing a
// notification is acceptable, stalling a state change is not.
func (d *Dispatcher) Publish(ev Event) {
	if d == nil || d.queue == nil {
		return
	}
	select {
	case d.queue <- ev:
	default:
		if d.Logger != nil {
			d.Logger.Warn("notify queue full, dropping event",
				zap.String("type", ev.Type),
				zap.Uint64("account_id", ev.AccountID),
			)
		}
	}
}

func (d *Dispatcher) Run(ctx context.Context) error {
	if d == nil || d.queue == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-d.queue:
			d.deliver(ctx, ev)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, ch := range d.Channels {
		if ch == nil {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, d.Timeout)
		err := ch.Send(sendCtx, ev)
		cancel()
		if err != nil && d.Logger != nil {
			d.Logger.Warn("notification delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("type", ev.Type),
				zap.Uint64("account_id", ev.AccountID),
				zap.Error(err),
			)
		}
	}
}
