// Package notify delivers monitor alerts to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Severity selects the embed color of a notification.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityCritical
)

// Discord embed colors: green, orange, red.
const (
	colorOK       = 3066993
	colorWarning  = 15105570
	colorCritical = 15158332
)

func (s Severity) color() int {
	switch s {
	case SeverityCritical:
		return colorCritical
	case SeverityWarning:
		return colorWarning
	default:
		return colorOK
	}
}

// SeverityForExit maps the monitor's exit code (0 OK, 1 warning,
// 2 critical) to an embed severity.
func SeverityForExit(code int) Severity {
	switch code {
	case 2:
		return SeverityCritical
	case 1:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// Delivery is the explicit outcome of one webhook POST. The monitor
// records it in its report but never lets it change the exit code.
type Delivery struct {
	// Attempted is false when no webhook URL is configured.
	Attempted bool
	// Confirmed is true when the webhook answered with a 2xx status.
	Confirmed bool
	// Err holds the network or HTTP failure, if any.
	Err error
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Notifier posts embed messages to a single Discord webhook URL.
// A zero-value webhook URL disables delivery.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// NewNotifier creates a Notifier for the given webhook URL. A nil client
// falls back to a client with a 30-second timeout.
func NewNotifier(webhookURL string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Notifier{webhookURL: webhookURL, client: client}
}

// Configured reports whether a webhook URL is set.
func (n *Notifier) Configured() bool {
	return n.webhookURL != ""
}

// Send posts a single embed and returns the delivery outcome. The
// response body is discarded and there are no retries: delivery is
// fire-and-forget, but the outcome is surfaced instead of swallowed.
func (n *Notifier) Send(ctx context.Context, title, description string, sev Severity, at time.Time) Delivery {
	if !n.Configured() {
		return Delivery{}
	}

	payload := webhookPayload{Embeds: []embed{{
		Title:       title,
		Description: description,
		Color:       sev.color(),
		Timestamp:   at.UTC().Format(time.RFC3339),
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return Delivery{Attempted: true, Err: fmt.Errorf("encoding webhook payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return Delivery{Attempted: true, Err: fmt.Errorf("building webhook request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return Delivery{Attempted: true, Err: fmt.Errorf("posting webhook: %w", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Delivery{Attempted: true, Err: fmt.Errorf("webhook answered %s", resp.Status)}
	}
	return Delivery{Attempted: true, Confirmed: true}
}
