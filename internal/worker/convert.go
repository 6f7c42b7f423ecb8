package worker

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// runFFmpeg shells out to the external ffmpeg binary. Indirection for tests.
var runFFmpeg = func(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "ffmpeg", args...).CombinedOutput()
}

// ffmpegOutputLimit caps how much ffmpeg output is echoed into errors.
const ffmpegOutputLimit = 2 << 10

// Normalize re-encodes the downloaded file into the gateway-friendly
// container: videos become H.264/AAC mp4, images become jpg. Files that
// already use the target container pass through untouched. On success
// the pre-conversion file is removed and the new path returned.
func (d *Downloader) Normalize(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var out string
	var args []string
	switch kind := detectKind(path); {
	case kind == KindVideo && ext != ".mp4":
		out = strings.TrimSuffix(path, ext) + ".mp4"
		args = []string{"-y", "-i", path, "-c:v", "libx264", "-c:a", "aac", out}
	case kind == KindImage && ext != ".jpg" && ext != ".jpeg":
		out = strings.TrimSuffix(path, ext) + ".jpg"
		args = []string{"-y", "-i", path, out}
	default:
		return path, nil
	}

	d.log.Info("converting %s -> %s", filepath.Base(path), filepath.Base(out))
	if output, err := runFFmpeg(ctx, args...); err != nil {
		if len(output) > ffmpegOutputLimit {
			output = output[len(output)-ffmpegOutputLimit:]
		}
		return "", fmt.Errorf("ffmpeg conversion failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	if err := d.fs.Remove(path); err != nil {
		d.log.Warning("failed to remove pre-conversion file %s: %v", path, err)
	}
	return out, nil
}
