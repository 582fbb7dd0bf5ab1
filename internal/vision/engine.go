// Package vision detects faces in captured frames and extracts the
// embeddings used for gallery matching. The engine is loaded once at
// startup and is read-only afterwards, so it is safe to share across
// concurrent camera workers.
package vision

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/gatewatch/internal/config"
	"github.com/your-org/gatewatch/internal/observability"
)

// Face is a detected face with its extracted embedding.
type Face struct {
	BBox       [4]float32
	Confidence float32
	Embedding  []float32
}

// Engine bundles the detector and embedder behind one call per frame.
type Engine struct {
	detector *Detector
	embedder *Embedder
}

// NewEngine initializes ONNX Runtime, downloads missing model artifacts and
// loads the detection and embedding models. Any failure here is a
// capability loss for the caller, not a reason to exit.
func NewEngine(ctx context.Context, cfg config.VisionConfig) (*Engine, error) {
	ort.SetSharedLibraryPath(onnxLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", err)
	}

	if err := EnsureModels(ctx, cfg.ModelsDir); err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("ensure models: %w", err)
	}

	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold))
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	if err := checkEmbeddingDim(cfg.EmbeddingDim, emb.Dim()); err != nil {
		det.Close()
		emb.Close()
		ort.DestroyEnvironment()
		return nil, err
	}

	slog.Info("vision engine ready")
	return &Engine{detector: det, embedder: emb}, nil
}

// Faces decodes a frame, detects every face in it and extracts an embedding
// for each. Faces whose crop or embedding fails are skipped.
func (e *Engine) Faces(frame []byte) ([]Face, error) {
	img, err := decodeImage(frame)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, e.detector.inputW, e.detector.inputH)
	detections, err := e.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]Face, 0, len(detections))
	for _, det := range detections {
		crop := cropFace(img, det.BBox)
		if crop == nil {
			continue
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, e.embedder.inputW, e.embedder.inputH)
		embedding, err := e.embedder.Extract(embInput)
		if err != nil {
			slog.Warn("embedding extraction failed", "error", err)
			continue
		}
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		faces = append(faces, Face{
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Embedding:  embedding,
		})
	}

	return faces, nil
}

// EmbeddingDim returns the dimensionality enrolled embeddings must have.
func (e *Engine) EmbeddingDim() int {
	return e.embedder.Dim()
}

// Close releases the ONNX sessions and the runtime environment.
func (e *Engine) Close() {
	if e.detector != nil {
		e.detector.Close()
	}
	if e.embedder != nil {
		e.embedder.Close()
	}
	_ = ort.DestroyEnvironment()
}

// checkEmbeddingDim guards against a config/model mismatch that would make
// every enrolled embedding unmatchable. Zero means "take the model's word".
func checkEmbeddingDim(configured, model int) error {
	if configured != 0 && configured != model {
		return fmt.Errorf("configured embedding_dim %d does not match model dimension %d", configured, model)
	}
	return nil
}

// onnxLibPath returns the ONNX Runtime shared library path for this OS.
func onnxLibPath() string {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
