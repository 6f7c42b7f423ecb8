package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var at = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestSend_PayloadShape(t *testing.T) {
	var got webhookPayload
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("payload is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL, srv.Client())
	d := n.Send(context.Background(), "Cookie monitor", "1 expired", SeverityCritical, at)

	if !d.Attempted || !d.Confirmed || d.Err != nil {
		t.Fatalf("expected confirmed delivery, got %+v", d)
	}
	if contentType != "application/json" {
		t.Errorf("expected application/json, got %q", contentType)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("expected 1 embed, got %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != "Cookie monitor" || e.Description != "1 expired" {
		t.Errorf("unexpected embed content: %+v", e)
	}
	if e.Color != colorCritical {
		t.Errorf("expected critical color %d, got %d", colorCritical, e.Color)
	}
	if e.Timestamp != "2025-06-15T12:00:00Z" {
		t.Errorf("expected RFC3339 timestamp, got %q", e.Timestamp)
	}
}

func TestSend_SeverityColors(t *testing.T) {
	tests := []struct {
		sev  Severity
		want int
	}{
		{SeverityOK, colorOK},
		{SeverityWarning, colorWarning},
		{SeverityCritical, colorCritical},
	}
	for _, tt := range tests {
		if got := tt.sev.color(); got != tt.want {
			t.Errorf("severity %d: expected color %d, got %d", tt.sev, tt.want, got)
		}
	}
}

func TestSend_NotConfigured(t *testing.T) {
	n := NewNotifier("", nil)
	d := n.Send(context.Background(), "t", "d", SeverityOK, at)
	if d.Attempted {
		t.Errorf("expected no attempt without a webhook URL, got %+v", d)
	}
}

func TestSend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	d := NewNotifier(srv.URL, srv.Client()).Send(context.Background(), "t", "d", SeverityWarning, at)
	if !d.Attempted || d.Confirmed {
		t.Errorf("expected attempted but unconfirmed, got %+v", d)
	}
	if d.Err == nil {
		t.Error("expected an error for non-2xx status")
	}
}

func TestSend_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := NewNotifier(url, nil).Send(context.Background(), "t", "d", SeverityOK, at)
	if !d.Attempted || d.Confirmed || d.Err == nil {
		t.Errorf("expected failed attempt, got %+v", d)
	}
}
