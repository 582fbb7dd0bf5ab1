package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeDecoder writes a shell script that stands in for ffmpeg.
func fakeDecoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decoder.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write fake decoder: %v", err)
	}
	return path
}

func TestGrabReturnsFrame(t *testing.T) {
	bin := fakeDecoder(t, `printf 'jpegdata'`)
	g := NewGrabber(bin, 5*time.Second)

	frame, ok := g.Grab(context.Background(), "rtsp://cam.example:554/stream")
	if !ok {
		t.Fatal("expected a frame")
	}
	if string(frame) != "jpegdata" {
		t.Errorf("unexpected frame data: %q", frame)
	}
}

func TestGrabNoFrameOnEmptyOutput(t *testing.T) {
	bin := fakeDecoder(t, `exit 0`)
	g := NewGrabber(bin, 5*time.Second)

	frame, ok := g.Grab(context.Background(), "rtsp://cam.example/stream")
	if ok {
		t.Errorf("expected no frame, got %d bytes", len(frame))
	}
}

func TestGrabNoFrameOnNonZeroExit(t *testing.T) {
	bin := fakeDecoder(t, `printf 'partial'; exit 1`)
	g := NewGrabber(bin, 5*time.Second)

	if _, ok := g.Grab(context.Background(), "http://cam.example/shot.jpg"); ok {
		t.Error("expected no frame on non-zero exit")
	}
}

func TestGrabTimeoutKillsProcess(t *testing.T) {
	bin := fakeDecoder(t, `sleep 30`)
	g := NewGrabber(bin, 300*time.Millisecond)

	start := time.Now()
	_, ok := g.Grab(context.Background(), "rtsp://hung.example/stream")
	elapsed := time.Since(start)

	if ok {
		t.Error("expected no frame from a hung source")
	}
	// Must return close to the timeout, not after the child's 30s sleep.
	if elapsed > 5*time.Second {
		t.Errorf("grab took %v, timeout not enforced", elapsed)
	}
}

func TestGrabHonorsCallerCancellation(t *testing.T) {
	bin := fakeDecoder(t, `sleep 30`)
	g := NewGrabber(bin, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	if _, ok := g.Grab(ctx, "rtsp://hung.example/stream"); ok {
		t.Error("expected no frame after cancellation")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation did not terminate the capture")
	}
}

func TestCaptureArgs(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"rtsp transport", "rtsp://cam/stream", "-rtsp_transport"},
		{"http timeout", "http://cam/shot", "-timeout"},
		{"single frame", "rtsp://cam/stream", "-frames:v"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := strings.Join(captureArgs(tt.url), " ")
			if !strings.Contains(args, tt.want) {
				t.Errorf("args %q missing %q", args, tt.want)
			}
			if !strings.Contains(args, tt.url) {
				t.Errorf("args missing stream url")
			}
		})
	}
}
