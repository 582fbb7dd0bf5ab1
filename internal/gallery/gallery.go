// Package gallery holds a tenant's enrolled face embeddings in an in-memory
// approximate-nearest-neighbour index and answers "whose face is this".
package gallery

import (
	"encoding/json"
	"log/slog"
	"math"

	"github.com/coder/hnsw"
	"github.com/google/uuid"

	"github.com/your-org/gatewatch/internal/models"
)

const maxNeighbors = 16

// Gallery is a read-only embedding index for one tenant. Build it once,
// query it from any number of goroutines.
type Gallery struct {
	graph     *hnsw.Graph[string]
	entries   map[string]entry
	threshold float32
	dim       int
}

type entry struct {
	studentID uuid.UUID
	name      string
}

// Match is a recognized face.
type Match struct {
	StudentID uuid.UUID
	Name      string
	Distance  float32
}

// Build indexes the given enrolled faces. Faces whose embedding is missing,
// malformed or of the wrong dimension are skipped with a warning. Returns
// nil when no face survives, which callers treat as "nothing to match
// against".
func Build(faces []models.EnrolledFace, dim int, threshold float32) *Gallery {
	g := hnsw.NewGraph[string]()
	g.M = maxNeighbors
	g.Ml = 1.0 / float64(maxNeighbors)
	g.Distance = hnsw.CosineDistance

	entries := make(map[string]entry, len(faces))

	for _, face := range faces {
		emb := face.Embedding
		if len(emb) == 0 && face.RawDescriptor != "" {
			parsed, err := parseDescriptor(face.RawDescriptor)
			if err != nil {
				slog.Warn("skipping malformed face descriptor",
					"student_id", face.StudentID, "error", err)
				continue
			}
			emb = parsed
		}
		if len(emb) != dim {
			slog.Warn("skipping face embedding with wrong dimension",
				"student_id", face.StudentID, "got", len(emb), "want", dim)
			continue
		}

		key := face.StudentID.String()
		g.Add(hnsw.MakeNode(key, emb))
		entries[key] = entry{studentID: face.StudentID, name: face.Name}
	}

	if len(entries) == 0 {
		return nil
	}

	return &Gallery{graph: g, entries: entries, threshold: threshold, dim: dim}
}

// Size returns the number of indexed faces.
func (g *Gallery) Size() int {
	if g == nil {
		return 0
	}
	return len(g.entries)
}

// Match returns the closest enrolled face for the given embedding, if it is
// within the match threshold. A distance exactly at the threshold counts as
// a match.
func (g *Gallery) Match(embedding []float32) (Match, bool) {
	if g == nil || len(embedding) != g.dim {
		return Match{}, false
	}

	neighbors := g.graph.Search(embedding, 1)
	if len(neighbors) == 0 {
		return Match{}, false
	}

	best := neighbors[0]
	dist := euclidean(hnsw.CosineDistance(embedding, best.Value))
	if dist > g.threshold {
		return Match{}, false
	}

	ent, ok := g.entries[best.Key]
	if !ok {
		return Match{}, false
	}

	return Match{StudentID: ent.studentID, Name: ent.name, Distance: dist}, true
}

// euclidean converts a cosine distance between unit vectors to the
// euclidean distance the match threshold is calibrated against:
// ||a-b||^2 = 2*(1-cos) for normalized a, b.
func euclidean(cosineDist float32) float32 {
	d := 2 * float64(cosineDist)
	if d < 0 {
		d = 0
	}
	return float32(math.Sqrt(d))
}

// parseDescriptor decodes a legacy JSON-array face descriptor.
func parseDescriptor(raw string) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
