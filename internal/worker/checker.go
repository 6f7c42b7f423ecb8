package worker

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/internal/monitor"
	"github.com/skatehive/ytipfs-worker/internal/notify"
	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

// Status is the worker's view of the session cookie health, served at
// /cookies/status for the external liveness probe. A cookie store is
// "valid" as long as no cookie in it has expired; warnings keep the
// session usable.
type Status struct {
	CookiesValid bool   `json:"cookies_valid"`
	CheckedAt    string `json:"checked_at,omitempty"`
	Healthy      int    `json:"healthy"`
	Warning      int    `json:"warning"`
	Expired      int    `json:"expired"`
	Skipped      int    `json:"skipped,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

// StatusBoard holds the most recent check result for the status endpoint.
// Written by the checker goroutine, read by request handlers.
type StatusBoard struct {
	mu  sync.RWMutex
	cur Status
}

// NewStatusBoard creates a board primed for a worker that has not
// completed a check yet. Without a configured cookie store the relay
// needs no session cookies, so the board starts out valid.
func NewStatusBoard(cookieFileConfigured bool) *StatusBoard {
	cur := Status{CookiesValid: true, Detail: "no cookie store configured"}
	if cookieFileConfigured {
		cur = Status{Detail: "no check completed yet"}
	}
	return &StatusBoard{cur: cur}
}

// Set replaces the current status.
func (b *StatusBoard) Set(s Status) {
	b.mu.Lock()
	b.cur = s
	b.mu.Unlock()
}

// Get returns the current status.
func (b *StatusBoard) Get() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cur
}

// Checker re-runs the cookie expiry check on a cron schedule and
// publishes the result to a StatusBoard. When a webhook is configured it
// also dispatches the monitor notification after every check.
type Checker struct {
	log      logger.Logger
	cfg      *config.Config
	board    *StatusBoard
	notifier *notify.Notifier

	// now supplies the wall clock; defaults to time.Now.
	now func() time.Time
}

// NewChecker wires a Checker. A nil notifier disables notifications.
func NewChecker(log logger.Logger, cfg *config.Config, board *StatusBoard, notifier *notify.Notifier) *Checker {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if notifier == nil {
		notifier = notify.NewNotifier("", nil)
	}
	return &Checker{log: log, cfg: cfg, board: board, notifier: notifier, now: time.Now}
}

// Run checks once immediately, then sleeps until each next cron
// occurrence, until the context is canceled. It returns an error only
// for an invalid schedule expression.
func (c *Checker) Run(ctx context.Context) error {
	if c.cfg.CookieFile == "" {
		c.log.Info("cookie checks disabled: no cookie store configured")
		return nil
	}
	if _, err := gronx.NextTickAfter(c.cfg.CheckSchedule, c.now(), false); err != nil {
		return fmt.Errorf("invalid check schedule %q: %w", c.cfg.CheckSchedule, err)
	}

	c.CheckOnce(ctx)
	for {
		next, err := gronx.NextTickAfter(c.cfg.CheckSchedule, c.now(), false)
		if err != nil {
			return fmt.Errorf("invalid check schedule %q: %w", c.cfg.CheckSchedule, err)
		}
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			c.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs one cookie check, updates the board and dispatches the
// notification according to the notify-always policy. Notification
// failures are logged and never interrupt the worker.
func (c *Checker) CheckOnce(ctx context.Context) {
	reporter := &monitor.Reporter{
		Out:           io.Discard,
		Now:           c.now,
		ThresholdDays: c.cfg.AlertThresholdDays,
	}
	checkedAt := c.now()

	summary, err := reporter.Run(c.cfg.CookieFile)
	if err != nil {
		c.log.Error("cookie check failed: %v", err)
		c.board.Set(Status{
			CheckedAt: checkedAt.UTC().Format(time.RFC3339),
			Detail:    err.Error(),
		})
		c.notifyResult(ctx, monitor.Summary{}, monitor.ExitCritical,
			fmt.Sprintf("cookie store unreadable: %s", err.Error()), checkedAt)
		return
	}

	c.board.Set(Status{
		CookiesValid: summary.Expired == 0,
		CheckedAt:    checkedAt.UTC().Format(time.RFC3339),
		Healthy:      summary.Healthy,
		Warning:      summary.Warning,
		Expired:      summary.Expired,
		Skipped:      summary.Skipped,
	})
	c.log.Info("cookie check: healthy=%d warning=%d expired=%d skipped=%d",
		summary.Healthy, summary.Warning, summary.Expired, summary.Skipped)

	c.notifyResult(ctx, summary, summary.ExitCode(), monitor.Describe(summary), checkedAt)
}

func (c *Checker) notifyResult(ctx context.Context, summary monitor.Summary, exitCode int, description string, at time.Time) {
	if !c.notifier.Configured() {
		return
	}
	// The original monitor notifies whenever a webhook is configured,
	// even with nothing to report; notify_always=false restricts it to
	// actionable runs.
	if !c.cfg.NotifyAlways && exitCode == monitor.ExitOK {
		return
	}
	d := c.notifier.Send(ctx, "ytipfs cookie monitor", description,
		notify.SeverityForExit(exitCode), at)
	if d.Attempted && !d.Confirmed {
		c.log.Warning("webhook delivery failed: %v", d.Err)
	}
}
