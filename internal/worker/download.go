package worker

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lrstanley/go-ytdlp"
	"github.com/spf13/afero"

	"github.com/skatehive/ytipfs-worker/internal/config"
	"github.com/skatehive/ytipfs-worker/pkg/logger"
)

// progressInterval is how often yt-dlp progress callbacks fire.
const progressInterval = 500 * time.Millisecond

// MediaKind distinguishes the two media families the relay handles
// (Instagram posts may resolve to either).
type MediaKind int

const (
	KindVideo MediaKind = iota
	KindImage
)

// detectKind guesses the media family from the file extension; anything
// that is not an image is treated as video, like the original relay.
func detectKind(path string) MediaKind {
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "image/") {
		return KindImage
	}
	return KindVideo
}

// ErrDownloadFailed marks failures of the external downloader itself,
// which the HTTP surface reports as a client error (bad or unsupported
// source URL) rather than a relay fault.
var ErrDownloadFailed = errors.New("download failed")

// TooLargeError reports a download that exceeded the configured size cap.
// The offending file is already deleted when this error is returned.
type TooLargeError struct {
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file too large (%s > %s)",
		humanize.IBytes(uint64(e.Size)), humanize.IBytes(uint64(e.Limit)))
}

// Progress is a size-based download progress snapshot forwarded to the
// optional OnProgress callback.
type Progress struct {
	Downloaded int64
	Total      int64
	Filename   string
}

// Downloader fetches media through the external yt-dlp binary and
// enforces the relay's size cap. The actual pipeline stays delegated to
// yt-dlp; this type only locates and validates its output.
type Downloader struct {
	fs  afero.Fs
	log logger.Logger

	dir      string
	format   string
	template string
	maxBytes int64

	// OnProgress, when set, receives periodic download progress updates.
	OnProgress func(Progress)
}

// NewDownloader creates a Downloader from the worker configuration.
// A nil fs falls back to the OS filesystem.
func NewDownloader(fs afero.Fs, log logger.Logger, cfg *config.Config) *Downloader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{
		fs:       fs,
		log:      log,
		dir:      cfg.DownloadDir,
		format:   cfg.YtdlFormat,
		template: cfg.OutputTemplate,
		maxBytes: cfg.MaxBytes(),
	}
}

// Fetch downloads the media at sourceURL into the download directory and
// returns the path of the resulting file. Files above the size cap are
// deleted and reported as *TooLargeError.
func (d *Downloader) Fetch(ctx context.Context, sourceURL string) (string, error) {
	if err := d.fs.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("creating download directory: %w", err)
	}

	dl := ytdlp.New().
		Format(d.format).
		NoPlaylist().
		RestrictFilenames().
		Retries("5").
		NoPart().
		ConcurrentFragments(4).
		Output(filepath.Join(d.dir, d.template))
	if d.OnProgress != nil {
		dl = dl.ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			p := Progress{Downloaded: int64(update.DownloadedBytes), Total: int64(update.TotalBytes)}
			if update.Info != nil && update.Info.Filename != nil {
				p.Filename = filepath.Base(*update.Info.Filename)
			}
			d.OnProgress(p)
		})
	}

	result, err := dl.Run(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: yt-dlp: %v", ErrDownloadFailed, err)
	}

	path, err := d.resolveOutput(result)
	if err != nil {
		return "", err
	}

	info, err := d.fs.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat of downloaded file: %w", err)
	}
	if info.Size() > d.maxBytes {
		if err := d.fs.Remove(path); err != nil {
			d.log.Warning("failed to remove oversized file %s: %v", path, err)
		}
		return "", &TooLargeError{Size: info.Size(), Limit: d.maxBytes}
	}
	return path, nil
}

// resolveOutput locates the file yt-dlp produced. The reported filename
// is preferred; when post-processing changed the extension the download
// directory is searched for the newest file carrying the media id.
func (d *Downloader) resolveOutput(result *ytdlp.Result) (string, error) {
	infos, err := result.GetExtractedInfo()
	if err != nil || len(infos) == 0 {
		return "", fmt.Errorf("%w: yt-dlp reported no extracted info", ErrDownloadFailed)
	}
	info := infos[0]

	if info.Filename != nil && *info.Filename != "" {
		if ok, _ := afero.Exists(d.fs, *info.Filename); ok {
			return *info.Filename, nil
		}
	}

	if info.ID != "" {
		if path := d.newestMatch("*" + info.ID + "*"); path != "" {
			return path, nil
		}
	}
	return "", fmt.Errorf("downloaded file not found in %s", d.dir)
}

// newestMatch returns the most recently modified file in the download
// directory matching pattern, or "".
func (d *Downloader) newestMatch(pattern string) string {
	matches, err := afero.Glob(d.fs, filepath.Join(d.dir, pattern))
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, m := range matches {
		fi, err := d.fs.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		if newest == "" || fi.ModTime().After(newestMod) {
			newest = m
			newestMod = fi.ModTime()
		}
	}
	return newest
}

// Remove deletes a downloaded file, tolerating files that are already gone.
func (d *Downloader) Remove(path string) error {
	err := d.fs.Remove(path)
	if err == nil {
		return nil
	}
	if ok, _ := afero.Exists(d.fs, path); !ok {
		return nil
	}
	return err
}
