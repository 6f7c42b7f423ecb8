package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/internal/notify"
)

var checkerClock = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func writeCookieStore(t *testing.T, lines string) string {
	t.Helper()
	fpath := filepath.Join(t.TempDir(), "cookies.txt")
	if err := os.WriteFile(fpath, []byte(lines), 0644); err != nil {
		t.Fatalf("failed to write cookie store: %v", err)
	}
	return fpath
}

func newTestChecker(cfg *config.Config, board *StatusBoard, notifier *notify.Notifier) *Checker {
	c := NewChecker(nil, cfg, board, notifier)
	c.now = func() time.Time { return checkerClock }
	return c
}

func TestStatusBoard_InitialStates(t *testing.T) {
	unconfigured := NewStatusBoard(false).Get()
	if !unconfigured.CookiesValid {
		t.Error("board without a cookie store must start valid")
	}
	configured := NewStatusBoard(true).Get()
	if configured.CookiesValid {
		t.Error("board with a cookie store must start invalid until checked")
	}
	if configured.Detail == "" {
		t.Error("expected a detail message before the first check")
	}
}

func TestCheckOnce_AllHealthy(t *testing.T) {
	expiry := checkerClock.Add(30 * 24 * time.Hour).Unix()
	store := writeCookieStore(t, fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv\n", expiry))
	cfg := &config.Config{CookieFile: store, AlertThresholdDays: 7}
	board := NewStatusBoard(true)

	newTestChecker(cfg, board, nil).CheckOnce(context.Background())

	got := board.Get()
	if !got.CookiesValid {
		t.Error("expected cookies_valid=true for a healthy store")
	}
	if got.Healthy != 1 || got.Warning != 0 || got.Expired != 0 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if got.CheckedAt != "2025-06-15T12:00:00Z" {
		t.Errorf("unexpected checked_at %q", got.CheckedAt)
	}
}

func TestCheckOnce_WarningKeepsSessionValid(t *testing.T) {
	expiry := checkerClock.Add(3 * 24 * time.Hour).Unix()
	store := writeCookieStore(t, fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv\n", expiry))
	cfg := &config.Config{CookieFile: store, AlertThresholdDays: 7}
	board := NewStatusBoard(true)

	newTestChecker(cfg, board, nil).CheckOnce(context.Background())

	got := board.Get()
	if !got.CookiesValid {
		t.Error("warnings alone must not invalidate the session")
	}
	if got.Warning != 1 {
		t.Errorf("expected 1 warning, got %+v", got)
	}
}

func TestCheckOnce_ExpiredInvalidates(t *testing.T) {
	expiry := checkerClock.Add(-10 * 24 * time.Hour).Unix()
	store := writeCookieStore(t, fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv\n", expiry))
	cfg := &config.Config{CookieFile: store, AlertThresholdDays: 7}
	board := NewStatusBoard(true)

	newTestChecker(cfg, board, nil).CheckOnce(context.Background())

	got := board.Get()
	if got.CookiesValid {
		t.Error("expected cookies_valid=false with an expired cookie")
	}
	if got.Expired != 1 {
		t.Errorf("expected 1 expired, got %+v", got)
	}
}

func TestCheckOnce_MissingStore(t *testing.T) {
	cfg := &config.Config{
		CookieFile:         filepath.Join(t.TempDir(), "nope.txt"),
		AlertThresholdDays: 7,
	}
	board := NewStatusBoard(true)

	newTestChecker(cfg, board, nil).CheckOnce(context.Background())

	got := board.Get()
	if got.CookiesValid {
		t.Error("expected cookies_valid=false when the store is unreadable")
	}
	if got.Detail == "" {
		t.Error("expected an error detail")
	}
}

func TestCheckOnce_NotifyPolicy(t *testing.T) {
	tests := []struct {
		name         string
		notifyAlways bool
		healthy      bool
		wantPost     bool
	}{
		{"always on healthy store", true, true, true},
		{"always on expired store", true, false, true},
		{"actionable only, healthy store", false, true, false},
		{"actionable only, expired store", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var posted bool
			var payload struct {
				Embeds []struct {
					Color int `json:"color"`
				} `json:"embeds"`
			}
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				posted = true
				body, _ := io.ReadAll(r.Body)
				_ = json.Unmarshal(body, &payload)
				w.WriteHeader(http.StatusNoContent)
			}))
			defer srv.Close()

			expiry := checkerClock.Add(30 * 24 * time.Hour).Unix()
			if !tt.healthy {
				expiry = checkerClock.Add(-10 * 24 * time.Hour).Unix()
			}
			store := writeCookieStore(t, fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv\n", expiry))
			cfg := &config.Config{
				CookieFile:         store,
				AlertThresholdDays: 7,
				NotifyAlways:       tt.notifyAlways,
			}
			board := NewStatusBoard(true)
			notifier := notify.NewNotifier(srv.URL, srv.Client())

			newTestChecker(cfg, board, notifier).CheckOnce(context.Background())

			if posted != tt.wantPost {
				t.Fatalf("posted=%v, want %v", posted, tt.wantPost)
			}
			if tt.wantPost && !tt.healthy {
				if len(payload.Embeds) != 1 || payload.Embeds[0].Color != 15158332 {
					t.Errorf("expected critical embed color, got %+v", payload.Embeds)
				}
			}
		})
	}
}

func TestRun_DisabledWithoutCookieStore(t *testing.T) {
	cfg := &config.Config{CheckSchedule: "0 * * * *"}
	c := newTestChecker(cfg, NewStatusBoard(false), nil)
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_RejectsInvalidSchedule(t *testing.T) {
	store := writeCookieStore(t, "")
	cfg := &config.Config{CookieFile: store, CheckSchedule: "not a cron expr", AlertThresholdDays: 7}
	c := newTestChecker(cfg, NewStatusBoard(true), nil)
	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected error for an invalid schedule")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	expiry := checkerClock.Add(30 * 24 * time.Hour).Unix()
	store := writeCookieStore(t, fmt.Sprintf(".example.com\tTRUE\t/\tFALSE\t%d\tsid\tv\n", expiry))
	cfg := &config.Config{CookieFile: store, CheckSchedule: "0 * * * *", AlertThresholdDays: 7}
	board := NewStatusBoard(true)
	c := NewChecker(nil, cfg, board, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// The immediate first check publishes before the cron sleep.
	deadline := time.After(5 * time.Second)
	for board.Get().CheckedAt == "" {
		select {
		case <-deadline:
			t.Fatal("first check never completed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
