package worker

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/internal/history"
	"github.com/skatehive/ytipfs-worker/internal/pinata"
	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

// Pinner uploads a local file to the pinning backend.
// *pinata.Client is the production implementation.
type Pinner interface {
	PinFile(ctx context.Context, path, name string) (*pinata.PinResult, error)
}

// Fetcher produces a local, normalized media file for a source URL.
// *Downloader is the production implementation.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (string, error)
	Normalize(ctx context.Context, path string) (string, error)
	Remove(path string) error
}

// Service implements the relay's HTTP surface: download-and-pin plus the
// health and cookie status endpoints.
type Service struct {
	log    logger.Logger
	cfg    *config.Config
	fs     afero.Fs
	dl     Fetcher
	pinner Pinner
	hist   *history.Store
	board  *StatusBoard
}

// NewService wires the relay service. A nil fs falls back to the OS
// filesystem; hist may be nil to disable pin history recording.
func NewService(log logger.Logger, cfg *config.Config, fs afero.Fs, dl Fetcher, pinner Pinner, hist *history.Store, board *StatusBoard) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if board == nil {
		board = NewStatusBoard(cfg.CookieFile != "")
	}
	return &Service{log: log, cfg: cfg, fs: fs, dl: dl, pinner: pinner, hist: hist, board: board}
}

type downloadRequest struct {
	URL string `json:"url"`
}

// PinResponse is the JSON answer of a successful download-and-pin.
type PinResponse struct {
	Status        string `json:"status"`
	CID           string `json:"cid"`
	IpfsURI       string `json:"ipfs_uri"`
	PinataGateway string `json:"pinata_gateway"`
	Filename      string `json:"filename"`
	Bytes         int64  `json:"bytes"`
	SourceURL     string `json:"source_url"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Routes returns the relay's request multiplexer.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /download", s.handleDownload)
	mux.HandleFunc("GET /d/{slug}", s.handleDownloadSlug)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /cookies/status", s.handleCookieStatus)
	return mux
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleCookieStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Get())
}

func (s *Service) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed request body"})
		return
	}
	s.serveRelay(w, r, req.URL)
}

func (s *Service) handleDownloadSlug(w http.ResponseWriter, r *http.Request) {
	target, err := decodeSlug(r.PathValue("slug"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed base64url slug"})
		return
	}
	s.serveRelay(w, r, target)
}

func (s *Service) serveRelay(w http.ResponseWriter, r *http.Request, sourceURL string) {
	if err := validateURL(sourceURL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: err.Error()})
		return
	}

	resp, err := s.Process(r.Context(), sourceURL)
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Detail: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Process runs the full relay flow for one URL: download, normalize the
// container, pin, record history, clean up. The local file is removed
// even when pinning fails, unless keep_files is set.
func (s *Service) Process(ctx context.Context, sourceURL string) (*PinResponse, error) {
	jobID := uuid.NewString()
	s.log.Info("job %s: downloading %s", jobID, sourceURL)

	path, err := s.dl.Fetch(ctx, sourceURL)
	if err != nil {
		s.log.Error("job %s: download failed: %v", jobID, err)
		return nil, err
	}
	defer s.cleanup(jobID, &path)

	// Keep the pre-conversion path on failure so the deferred cleanup
	// still removes the downloaded file.
	converted, err := s.dl.Normalize(ctx, path)
	if err != nil {
		s.log.Error("job %s: %v", jobID, err)
		return nil, err
	}
	path = converted

	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat of final file: %w", err)
	}

	s.log.Info("job %s: pinning %s (%d bytes)", jobID, filepath.Base(path), info.Size())
	pin, err := s.pinner.PinFile(ctx, path, filepath.Base(path))
	if err != nil {
		s.log.Error("job %s: pin failed: %v", jobID, err)
		return nil, fmt.Errorf("%w: %s", errPinFailed, err.Error())
	}

	if s.hist != nil {
		if _, err := s.hist.Record(history.Pin{
			ID:        jobID,
			CID:       pin.IpfsHash,
			Filename:  filepath.Base(path),
			Bytes:     info.Size(),
			SourceURL: sourceURL,
		}); err != nil {
			s.log.Warning("job %s: failed to record pin history: %v", jobID, err)
		}
	}

	s.log.Info("job %s: pinned as %s", jobID, pin.IpfsHash)
	return &PinResponse{
		Status:        "ok",
		CID:           pin.IpfsHash,
		IpfsURI:       "ipfs://" + pin.IpfsHash,
		PinataGateway: s.cfg.GatewayURL + pin.IpfsHash,
		Filename:      filepath.Base(path),
		Bytes:         info.Size(),
		SourceURL:     sourceURL,
	}, nil
}

// cleanup removes the downloaded file after the relay flow, successful
// or not, unless the deployment keeps files.
func (s *Service) cleanup(jobID string, path *string) {
	if s.cfg.KeepFiles {
		return
	}
	if err := s.dl.Remove(*path); err != nil {
		s.log.Warning("job %s: failed to remove %s: %v", jobID, *path, err)
	}
}

// errPinFailed marks upstream pinning errors so they map to 502.
var errPinFailed = errors.New("pinning failed")

func statusFor(err error) int {
	var tooLarge *TooLargeError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errPinFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrDownloadFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url")
	}
	return nil
}

// decodeSlug decodes a base64url-encoded URL, restoring the padding the
// shortener strips.
func decodeSlug(slug string) (string, error) {
	if slug == "" {
		return "", fmt.Errorf("empty slug")
	}
	if rem := len(slug) % 4; rem != 0 {
		slug += strings.Repeat("=", 4-rem)
	}
	raw, err := base64.URLEncoding.DecodeString(slug)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
