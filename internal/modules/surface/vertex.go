// Package surface accumulates the vertices produced by measurement runs and
// reconstructs a dense displaced-sphere mesh from them via inverse-distance
// weighted interpolation.
package surface

import (
	"sync"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/encoding"
	"github.com/Tecnocrat/aios-quantum-sub000/pkg/geometry"
)

// Vertex is one accumulated surface sample: a spherical position with the
// height and color derived from a measurement outcome, tagged with the beat
// that produced it.
type Vertex struct {
	Position geometry.Spherical `json:"position" msgpack:"position"`
	Height   float64            `json:"height" msgpack:"height"`
	Color    encoding.RGB       `json:"color" msgpack:"color"`
	Beat     int                `json:"beat" msgpack:"beat"`
	Error    float64            `json:"error" msgpack:"error"`
	Pattern  string             `json:"pattern" msgpack:"pattern"`
}

// VertexSet is the accumulated vertex collection across runs. The version
// counter advances on every mutation so mesh caches can key on it.
type VertexSet struct {
	mu       sync.RWMutex
	vertices []Vertex
	version  uint64
}

// NewVertexSet creates an empty vertex set
func NewVertexSet() *VertexSet {
	return &VertexSet{}
}

// Add appends vertices and bumps the version. Returns the new version.
func (s *VertexSet) Add(vertices []Vertex) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices = append(s.vertices, vertices...)
	s.version++
	return s.version
}

// Restore replaces the set's contents from a persisted snapshot
func (s *VertexSet) Restore(version uint64, vertices []Vertex) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vertices = append([]Vertex(nil), vertices...)
	s.version = version
}

// Snapshot returns the current version and a copy of the vertices
func (s *VertexSet) Snapshot() (uint64, []Vertex) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, append([]Vertex(nil), s.vertices...)
}

// Version returns the current version counter
func (s *VertexSet) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len returns the number of accumulated vertices
func (s *VertexSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vertices)
}
