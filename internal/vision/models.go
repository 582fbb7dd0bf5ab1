package vision

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const modelBaseURL = "https://huggingface.co/public-data/insightface/resolve/main/models/buffalo_l/"

// modelArtifacts are the ONNX files the engine needs. The det_10g detector
// also carries the five-point landmark head, so no separate landmark file
// is fetched.
var modelArtifacts = []string{
	"det_10g.onnx",
	"w600k_r50.onnx",
}

// EnsureModels downloads any missing model artifacts into dir. Already
// present files are left untouched, so the download happens once per
// installation.
func EnsureModels(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Minute}

	for _, name := range modelArtifacts {
		target := filepath.Join(dir, name)
		if _, err := os.Stat(target); err == nil {
			continue
		}

		slog.Info("downloading model artifact", "name", name)
		if err := downloadModel(ctx, client, modelBaseURL+name, target); err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
	}

	return nil
}

// downloadModel fetches a model file to a temp path and renames it into
// place, so a partial download never passes the os.Stat check above.
func downloadModel(ctx context.Context, client *http.Client, url, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), target)
}
