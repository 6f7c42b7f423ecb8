package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/internal/history"
	"github.com/skatehive/ytipfs-worker/internal/pinata"
)

type fakeFetcher struct {
	fs        afero.Fs
	path      string
	content   string
	fetchErr  error
	removed   []string
	normalize func(path string) (string, error)
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	if err := afero.WriteFile(f.fs, f.path, []byte(f.content), 0644); err != nil {
		return "", err
	}
	return f.path, nil
}

func (f *fakeFetcher) Normalize(ctx context.Context, path string) (string, error) {
	if f.normalize != nil {
		return f.normalize(path)
	}
	return path, nil
}

func (f *fakeFetcher) Remove(path string) error {
	f.removed = append(f.removed, path)
	return f.fs.Remove(path)
}

type fakePinner struct {
	result *pinata.PinResult
	err    error
	name   string
}

func (p *fakePinner) PinFile(ctx context.Context, path, name string) (*pinata.PinResult, error) {
	p.name = name
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

func testService(t *testing.T, fetcher *fakeFetcher, pinner Pinner) *Service {
	t.Helper()
	cfg := &config.Config{GatewayURL: "https://ipfs.test/ipfs/", MaxFileMB: 1500}
	return NewService(nil, cfg, fetcher.fs, fetcher, pinner, nil, NewStatusBoard(false))
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		fs:      afero.NewMemMapFs(),
		path:    "/data/clip.mp4",
		content: "video bytes",
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := testService(t, newFakeFetcher(), &fakePinner{})
	for _, target := range []string{"/health", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		s.Routes().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
			t.Errorf("%s: unexpected body %q", target, rec.Body.String())
		}
	}
}

func TestCookieStatusEndpoint(t *testing.T) {
	s := testService(t, newFakeFetcher(), &fakePinner{})
	s.board.Set(Status{CookiesValid: true, Healthy: 3})

	req := httptest.NewRequest(http.MethodGet, "/cookies/status", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cookies_valid":true`) {
		t.Errorf("expected valid marker in body, got %q", rec.Body.String())
	}
}

func TestDownload_HappyPath(t *testing.T) {
	fetcher := newFakeFetcher()
	pinner := &fakePinner{result: &pinata.PinResult{IpfsHash: "bafycid"}}
	s := testService(t, fetcher, pinner)

	body := strings.NewReader(`{"url":"https://example.com/watch?v=abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/download", body)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp PinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Status != "ok" || resp.CID != "bafycid" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.IpfsURI != "ipfs://bafycid" {
		t.Errorf("unexpected ipfs uri %q", resp.IpfsURI)
	}
	if resp.PinataGateway != "https://ipfs.test/ipfs/bafycid" {
		t.Errorf("unexpected gateway url %q", resp.PinataGateway)
	}
	if resp.Filename != "clip.mp4" || resp.Bytes != int64(len("video bytes")) {
		t.Errorf("unexpected file metadata: %+v", resp)
	}
	if resp.SourceURL != "https://example.com/watch?v=abc" {
		t.Errorf("unexpected source url %q", resp.SourceURL)
	}
	if pinner.name != "clip.mp4" {
		t.Errorf("expected pin name clip.mp4, got %q", pinner.name)
	}

	// File removed after pinning (keep_files unset).
	if exists, _ := afero.Exists(fetcher.fs, fetcher.path); exists {
		t.Error("expected downloaded file to be removed")
	}
}

func TestDownload_KeepFiles(t *testing.T) {
	fetcher := newFakeFetcher()
	pinner := &fakePinner{result: &pinata.PinResult{IpfsHash: "cid"}}
	s := testService(t, fetcher, pinner)
	s.cfg.KeepFiles = true

	if _, err := s.Process(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists, _ := afero.Exists(fetcher.fs, fetcher.path); !exists {
		t.Error("expected file to survive with keep_files")
	}
}

func TestDownload_RemovesFileOnPinFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	s := testService(t, fetcher, &fakePinner{err: errors.New("upstream down")})

	_, err := s.Process(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("expected pin error")
	}
	if exists, _ := afero.Exists(fetcher.fs, fetcher.path); exists {
		t.Error("expected file removed even when pinning fails")
	}
}

func TestDownload_RemovesFileOnConversionFailure(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.path = "/data/clip.webm"
	fetcher.normalize = func(path string) (string, error) {
		return "", errors.New("ffmpeg conversion failed: exit status 1")
	}
	s := testService(t, fetcher, &fakePinner{result: &pinata.PinResult{IpfsHash: "cid"}})

	_, err := s.Process(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("expected conversion error")
	}
	if exists, _ := afero.Exists(fetcher.fs, "/data/clip.webm"); exists {
		t.Error("expected downloaded file removed after conversion failure")
	}
}

func TestDownload_ErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
		pinErr   error
		want     int
	}{
		{"too large", &TooLargeError{Size: 2048, Limit: 1024}, nil, http.StatusRequestEntityTooLarge},
		{"downloader failure", fmt.Errorf("%w: yt-dlp: boom", ErrDownloadFailed), nil, http.StatusBadRequest},
		{"pin failure", nil, errors.New("pinata 500"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newFakeFetcher()
			fetcher.fetchErr = tt.fetchErr
			s := testService(t, fetcher, &fakePinner{result: &pinata.PinResult{IpfsHash: "c"}, err: tt.pinErr})

			body := strings.NewReader(`{"url":"https://example.com/a"}`)
			req := httptest.NewRequest(http.MethodPost, "/download", body)
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDownload_RejectsBadRequests(t *testing.T) {
	s := testService(t, newFakeFetcher(), &fakePinner{})
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"url": `},
		{"missing url", `{}`},
		{"relative url", `{"url":"not-a-url"}`},
		{"bad scheme", `{"url":"ftp://example.com/a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/download", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Routes().ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestDownloadSlug(t *testing.T) {
	fetcher := newFakeFetcher()
	pinner := &fakePinner{result: &pinata.PinResult{IpfsHash: "cid"}}
	s := testService(t, fetcher, pinner)

	target := "https://example.com/watch?v=abc"
	// Unpadded slug, as produced by URL shorteners.
	slug := strings.TrimRight(base64.URLEncoding.EncodeToString([]byte(target)), "=")

	req := httptest.NewRequest(http.MethodGet, "/d/"+slug, nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp PinResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.SourceURL != target {
		t.Errorf("expected decoded source url %q, got %q", target, resp.SourceURL)
	}
}

func TestDownloadSlug_Malformed(t *testing.T) {
	s := testService(t, newFakeFetcher(), &fakePinner{})
	req := httptest.NewRequest(http.MethodGet, "/d/!!!not-base64!!!", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "base64url") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestProcess_RecordsHistory(t *testing.T) {
	fetcher := newFakeFetcher()
	pinner := &fakePinner{result: &pinata.PinResult{IpfsHash: "bafycid"}}

	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to open history: %v", err)
	}
	defer hist.Close()

	cfg := &config.Config{GatewayURL: "https://ipfs.test/ipfs/"}
	s := NewService(nil, cfg, fetcher.fs, fetcher, pinner, hist, NewStatusBoard(false))

	if _, err := s.Process(context.Background(), "https://example.com/a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pins, err := hist.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pins) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(pins))
	}
	if pins[0].CID != "bafycid" || pins[0].Filename != "clip.mp4" {
		t.Errorf("unexpected history row: %+v", pins[0])
	}
}

func TestDecodeSlug(t *testing.T) {
	padded := base64.URLEncoding.EncodeToString([]byte("https://e.com/x"))
	for _, slug := range []string{padded, strings.TrimRight(padded, "=")} {
		got, err := decodeSlug(slug)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", slug, err)
		}
		if got != "https://e.com/x" {
			t.Errorf("expected decoded url, got %q", got)
		}
	}
	if _, err := decodeSlug(""); err == nil {
		t.Error("expected error for empty slug")
	}
}
