// Package monitor implements the one-shot cookie expiry report: parse the
// store, classify every record, render a per-cookie report plus summary,
// and reduce the run to a scheduler-facing exit code.
package monitor

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/skatehive/ytipfs-worker/internal/cookies"
)

// Exit codes consumed by the external job scheduler.
const (
	ExitOK       = 0
	ExitWarning  = 1
	ExitCritical = 2
)

// Summary aggregates one reporter run. It is created at run start,
// finalized at run end and never persisted.
type Summary struct {
	Healthy int
	Warning int
	Expired int
	// Skipped counts malformed store lines that produced no record.
	Skipped int
}

// Total returns the number of classified records.
func (s Summary) Total() int {
	return s.Healthy + s.Warning + s.Expired
}

// ExitCode reduces the summary to one of the three terminal exit states:
// any expired cookie wins over any warning, which wins over OK.
func (s Summary) ExitCode() int {
	switch {
	case s.Expired > 0:
		return ExitCritical
	case s.Warning > 0:
		return ExitWarning
	default:
		return ExitOK
	}
}

// Reporter runs the cookie expiry check. All collaborators are injected
// so runs against a fixed store and clock are reproducible.
type Reporter struct {
	// Out receives the human-readable report. Callers typically pass an
	// io.MultiWriter over stdout and the append-only log file.
	Out io.Writer
	// Now supplies the wall clock. Defaults to time.Now.
	Now func() time.Time
	// ThresholdDays is the warning window; values below 1 fall back to
	// cookies.DefaultThresholdDays.
	ThresholdDays int
}

// Run parses the cookie store at storePath, classifies every record and
// writes the report to r.Out. A missing or unreadable store returns an
// error and no summary; callers map that to ExitCritical.
func (r *Reporter) Run(storePath string) (Summary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	out := r.Out
	if out == nil {
		out = os.Stdout
	}

	records, skipped, err := cookies.ParseFile(storePath)
	if err != nil {
		fmt.Fprintf(out, "cookie check failed: %s\n", err.Error())
		return Summary{}, err
	}

	ts := now()
	fmt.Fprintf(out, "==> cookie check %s (%s)\n", ts.Format("2006-01-02 15:04:05"), storePath)

	summary := Summary{Skipped: skipped}
	for _, rec := range records {
		c := cookies.Classify(rec, ts, r.ThresholdDays)
		switch c.Health {
		case cookies.Expired:
			summary.Expired++
		case cookies.Warning:
			summary.Warning++
		default:
			summary.Healthy++
		}
		fmt.Fprintln(out, renderLine(rec.Name, c))
	}

	fmt.Fprintln(out, renderSummary(summary))
	return summary, nil
}

func renderLine(name string, c cookies.Classification) string {
	switch {
	case c.Session:
		return fmt.Sprintf("✅ %s: session cookie (expires: N/A)", name)
	case c.Health == cookies.Expired:
		return fmt.Sprintf("❌ %s: expired %d days ago (%s)", name, -c.DaysLeft, c.ExpiresAt)
	case c.Health == cookies.Warning:
		return fmt.Sprintf("⚠️ %s: expires in %d days (%s)", name, c.DaysLeft, c.ExpiresAt)
	default:
		return fmt.Sprintf("✅ %s: %d days remaining (%s)", name, c.DaysLeft, c.ExpiresAt)
	}
}

func renderSummary(s Summary) string {
	line := fmt.Sprintf("---- healthy: %d, warning: %d, expired: %d", s.Healthy, s.Warning, s.Expired)
	if s.Skipped > 0 {
		line += fmt.Sprintf(" (skipped %d malformed lines)", s.Skipped)
	}
	return line
}

// Describe renders the summary counts as a single human-readable sentence
// for the notification message body.
func Describe(s Summary) string {
	return fmt.Sprintf("%d healthy, %d expiring within threshold, %d expired (%d cookies checked)",
		s.Healthy, s.Warning, s.Expired, s.Total())
}

// OpenLog opens the append-only report log, creating it if needed.
func OpenLog(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("cannot open report log: %w", err)
	}
	return f, nil
}
