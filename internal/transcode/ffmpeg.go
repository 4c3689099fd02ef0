package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"rendition-server/internal/asset"
)

// DefaultBinary is the engine executable looked up on PATH.
const DefaultBinary = "ffmpeg"

// waitDelay bounds how long Run waits for stderr to drain after the process
// was killed.
const waitDelay = 5 * time.Second

// FFmpeg runs the ffmpeg CLI to produce H.264/AAC MP4 renditions.
type FFmpeg struct {
	Binary string
	Log    *slog.Logger
}

// NewFFmpeg returns an FFmpeg engine using binary, or DefaultBinary when empty.
func NewFFmpeg(binary string, log *slog.Logger) *FFmpeg {
	if binary == "" {
		binary = DefaultBinary
	}
	if log == nil {
		log = slog.Default()
	}
	return &FFmpeg{Binary: binary, Log: log}
}

// Run implements Engine. ffmpeg writes into a temporary file in the same
// directory as outputPath, which is renamed into place only after a zero
// exit status and a non-empty result.
func (f *FFmpeg) Run(ctx context.Context, sourcePath string, dims Dimensions, outputPath string) error {
	if dims.Width <= 0 || dims.Height <= 0 {
		return &EngineError{Cause: fmt.Sprintf("invalid target dimensions %s", dims)}
	}

	dir := filepath.Dir(outputPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outputPath)+".*"+asset.TempSuffix)
	if err != nil {
		return &EngineError{Cause: "cannot write to output directory", Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()

	logger := f.Log.With(
		slog.String("engine", "ffmpeg"),
		slog.String("output", filepath.Base(outputPath)),
		slog.String("size", dims.String()),
	)

	stderr := newTailBuffer(stderrTailBytes)
	cmd := exec.CommandContext(ctx, f.Binary, f.args(sourcePath, dims, tmpPath)...)
	cmd.Stderr = io.MultiWriter(stderr, logWriter(logger))
	cmd.WaitDelay = waitDelay

	start := time.Now()
	logger.Debug("engine started")
	runErr := cmd.Run()

	if runErr != nil {
		os.Remove(tmpPath)
		return f.failure(ctx, runErr, stderr.String())
	}

	info, err := os.Stat(tmpPath)
	if err != nil || info.Size() == 0 {
		os.Remove(tmpPath)
		return &EngineError{Cause: "engine reported success but produced no output", Err: err}
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		os.Remove(tmpPath)
		return &EngineError{Cause: "cannot move rendition into place", Err: err}
	}

	logger.Debug("engine finished",
		slog.Int64("bytes", info.Size()),
		slog.Int("duration_ms", int(time.Since(start).Milliseconds())))
	return nil
}

func (f *FFmpeg) args(sourcePath string, dims Dimensions, out string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", sourcePath,
		"-vf", fmt.Sprintf("scale=%d:%d", dims.Width, dims.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-movflags", "+faststart",
		"-f", "mp4",
		out,
	}
}

func (f *FFmpeg) failure(ctx context.Context, err error, stderr string) *EngineError {
	if ctxErr := ctx.Err(); ctxErr != nil {
		cause := "engine run canceled"
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			cause = "engine run timed out"
		}
		return &EngineError{Cause: cause, Err: ctxErr}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cause := fmt.Sprintf("exit status %d", exitErr.ExitCode())
		if msg := lastLine(stderr); msg != "" {
			cause += ": " + msg
		}
		return &EngineError{Cause: cause, Err: err}
	}
	return &EngineError{Cause: "cannot start engine", Err: err}
}

// lastLine returns the last non-empty line of s; ffmpeg prints the decisive
// error last.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
