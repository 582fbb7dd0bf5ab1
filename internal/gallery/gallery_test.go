package gallery

import (
	"math"
	"testing"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/models"
)

const testDim = 8

func unitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

// rotated returns a unit vector at the given angle from axis 0 toward axis 1.
func rotated(dim int, angle float64) []float32 {
	v := make([]float32, dim)
	v[0] = float32(math.Cos(angle))
	v[1] = float32(math.Sin(angle))
	return v
}

func enrolled(name string, emb []float32) models.EnrolledFace {
	return models.EnrolledFace{
		StudentID: uuid.New(),
		TenantID:  uuid.New(),
		Name:      name,
		Embedding: emb,
	}
}

func TestBuildEmptyInput(t *testing.T) {
	if g := Build(nil, testDim, 0.6); g != nil {
		t.Error("Build(nil) returned a non-nil gallery")
	}
	if got := (*Gallery)(nil).Size(); got != 0 {
		t.Errorf("nil gallery Size() = %d, want 0", got)
	}
}

func TestBuildSkipsInvalidEntries(t *testing.T) {
	faces := []models.EnrolledFace{
		enrolled("good", unitVector(testDim, 0)),
		enrolled("wrong-dim", unitVector(testDim+2, 0)),
		{StudentID: uuid.New(), Name: "malformed", RawDescriptor: "{not json"},
		{StudentID: uuid.New(), Name: "empty"},
	}

	g := Build(faces, testDim, 0.6)
	if g == nil {
		t.Fatal("Build returned nil despite one valid face")
	}
	if g.Size() != 1 {
		t.Errorf("Size() = %d, want 1", g.Size())
	}
}

func TestBuildAllInvalid(t *testing.T) {
	faces := []models.EnrolledFace{
		{StudentID: uuid.New(), Name: "malformed", RawDescriptor: "[1, 2, oops]"},
		enrolled("wrong-dim", unitVector(3, 0)),
	}

	if g := Build(faces, testDim, 0.6); g != nil {
		t.Error("Build returned a gallery with zero valid faces")
	}
}

func TestBuildParsesLegacyDescriptor(t *testing.T) {
	face := models.EnrolledFace{
		StudentID:     uuid.New(),
		Name:          "legacy",
		RawDescriptor: "[1, 0, 0, 0, 0, 0, 0, 0]",
	}

	g := Build([]models.EnrolledFace{face}, testDim, 0.6)
	if g == nil {
		t.Fatal("Build rejected valid legacy descriptor")
	}

	m, ok := g.Match(unitVector(testDim, 0))
	if !ok {
		t.Fatal("Match failed against legacy-descriptor face")
	}
	if m.StudentID != face.StudentID {
		t.Errorf("matched %s, want %s", m.StudentID, face.StudentID)
	}
}

func TestMatchExact(t *testing.T) {
	face := enrolled("alice", unitVector(testDim, 0))
	g := Build([]models.EnrolledFace{face}, testDim, 0.6)

	m, ok := g.Match(unitVector(testDim, 0))
	if !ok {
		t.Fatal("identical embedding did not match")
	}
	if m.Name != "alice" {
		t.Errorf("matched %q, want alice", m.Name)
	}
	if m.Distance > 1e-3 {
		t.Errorf("distance for identical embedding = %v", m.Distance)
	}
}

func TestMatchPicksNearest(t *testing.T) {
	near := enrolled("near", rotated(testDim, 0.1))
	far := enrolled("far", unitVector(testDim, 2))
	g := Build([]models.EnrolledFace{far, near}, testDim, 0.6)

	m, ok := g.Match(unitVector(testDim, 0))
	if !ok {
		t.Fatal("no match returned")
	}
	if m.StudentID != near.StudentID {
		t.Errorf("matched %q, want the nearest face", m.Name)
	}
}

func TestMatchBeyondThreshold(t *testing.T) {
	face := enrolled("bob", unitVector(testDim, 0))
	g := Build([]models.EnrolledFace{face}, testDim, 0.6)

	// Orthogonal unit vectors sit at euclidean distance sqrt(2).
	if _, ok := g.Match(unitVector(testDim, 1)); ok {
		t.Error("matched an embedding far beyond the threshold")
	}
}

func TestMatchExactlyAtThreshold(t *testing.T) {
	probe := unitVector(testDim, 0)
	candidate := rotated(testDim, 0.5)

	dist := euclidean(hnsw.CosineDistance(probe, candidate))

	face := enrolled("edge", candidate)

	atThreshold := Build([]models.EnrolledFace{face}, testDim, dist)
	if _, ok := atThreshold.Match(probe); !ok {
		t.Error("distance exactly at the threshold should match")
	}

	belowThreshold := Build([]models.EnrolledFace{face}, testDim, dist*0.99)
	if _, ok := belowThreshold.Match(probe); ok {
		t.Error("distance above the threshold should not match")
	}
}

func TestMatchDimensionMismatch(t *testing.T) {
	g := Build([]models.EnrolledFace{enrolled("carol", unitVector(testDim, 0))}, testDim, 0.6)

	if _, ok := g.Match(unitVector(testDim+1, 0)); ok {
		t.Error("matched a probe embedding of the wrong dimension")
	}
	if _, ok := g.Match(nil); ok {
		t.Error("matched a nil probe embedding")
	}
}

func TestMatchNilGallery(t *testing.T) {
	var g *Gallery
	if _, ok := g.Match(unitVector(testDim, 0)); ok {
		t.Error("nil gallery returned a match")
	}
}

func TestEuclideanConversion(t *testing.T) {
	// Identical unit vectors: cosine distance 0 maps to euclidean 0.
	if d := euclidean(0); d != 0 {
		t.Errorf("euclidean(0) = %v", d)
	}
	// Orthogonal unit vectors: cosine distance 1 maps to sqrt(2).
	if d := euclidean(1); math.Abs(float64(d)-math.Sqrt2) > 1e-5 {
		t.Errorf("euclidean(1) = %v, want sqrt(2)", d)
	}
	// Tiny negative values from float error clamp to zero.
	if d := euclidean(-1e-7); d != 0 {
		t.Errorf("euclidean(-1e-7) = %v", d)
	}
}
