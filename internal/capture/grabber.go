package capture

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/your-org/gatewatch/internal/observability"
)

// Grabber captures a single still frame from a live video source by running
// one short-lived ffmpeg process per attempt.
type Grabber struct {
	Bin     string        // decoder binary, normally "ffmpeg"
	Timeout time.Duration // hard upper bound on one capture attempt
}

func NewGrabber(bin string, timeout time.Duration) *Grabber {
	if bin == "" {
		bin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Grabber{Bin: bin, Timeout: timeout}
}

// Grab returns one encoded JPEG frame and true, or nil and false when no
// frame could be obtained. Timeout, non-zero exit and empty output are all
// the same "no frame" outcome; none of them is an error to the caller.
// The spawned process is terminated on every exit path.
func (g *Grabber) Grab(ctx context.Context, streamURL string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		observability.CaptureDuration.Observe(time.Since(start).Seconds())
	}()

	cmd := exec.CommandContext(ctx, g.Bin, captureArgs(streamURL)...)
	// If the process ignores the kill long enough to outlive the context,
	// force-reap it rather than hang the camera worker.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.Debug("frame capture failed",
			"url", streamURL,
			"error", err,
			"stderr", truncate(stderr.String(), 300),
		)
		observability.FramesCaptured.WithLabelValues("failed").Inc()
		return nil, false
	}

	if stdout.Len() == 0 {
		slog.Debug("frame capture produced no data", "url", streamURL)
		observability.FramesCaptured.WithLabelValues("empty").Inc()
		return nil, false
	}

	observability.FramesCaptured.WithLabelValues("ok").Inc()
	return stdout.Bytes(), true
}

// captureArgs builds the ffmpeg argument list for a single-frame grab.
func captureArgs(streamURL string) []string {
	args := []string{
		"-hide_banner",
		"-loglevel", "warning",
	}

	if strings.HasPrefix(streamURL, "rtsp://") || strings.HasPrefix(streamURL, "rtsps://") {
		args = append(args,
			"-rtsp_transport", "tcp",
			"-stimeout", "5000000", // 5s RTSP socket timeout (microseconds)
		)
	} else if strings.HasPrefix(streamURL, "http://") || strings.HasPrefix(streamURL, "https://") {
		args = append(args,
			"-timeout", "5000000", // 5s (microseconds)
		)
	}

	args = append(args,
		"-i", streamURL,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)
	return args
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
