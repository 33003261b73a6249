package surface

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/events"
)

// SnapshotStore persists the accumulated vertex set across restarts.
type SnapshotStore interface {
	SaveSnapshot(version uint64, vertices []Vertex) error
	LoadSnapshot() (uint64, []Vertex, error)
}

type cacheKey struct {
	version    uint64
	resolution int
}

// Service owns the accumulated vertex set and serves reconstructed meshes.
// Meshes are cached by (vertex-set version, resolution): reconstruction cost
// grows with resolution² × vertex count, so repeat reads at an unchanged
// version never recompute.
type Service struct {
	set           *VertexSet
	reconstructor *Reconstructor
	store         SnapshotStore
	events        *events.Manager
	log           zerolog.Logger

	baseRadius        float64
	displacementScale float64

	cacheMu sync.Mutex
	cache   map[cacheKey]*Mesh
}

// NewService creates a surface service. The store may be nil, in which case
// vertex sets live only in memory.
func NewService(store SnapshotStore, em *events.Manager, log zerolog.Logger, baseRadius, displacementScale float64) *Service {
	return &Service{
		set:               NewVertexSet(),
		reconstructor:     NewReconstructor(),
		store:             store,
		events:            em,
		log:               log.With().Str("service", "surface").Logger(),
		baseRadius:        baseRadius,
		displacementScale: displacementScale,
		cache:             make(map[cacheKey]*Mesh),
	}
}

// Restore reloads the persisted vertex set. Called once at startup, before
// the scheduler begins producing beats.
func (s *Service) Restore() error {
	if s.store == nil {
		return nil
	}

	version, vertices, err := s.store.LoadSnapshot()
	if err != nil {
		return fmt.Errorf("failed to restore vertex set: %w", err)
	}
	if version == 0 && len(vertices) == 0 {
		return nil
	}

	s.set.Restore(version, vertices)
	s.log.Info().Uint64("version", version).Int("vertices", len(vertices)).Msg("Vertex set restored")
	return nil
}

// AddRunVertices appends one run's vertices, persists the snapshot, and
// invalidates cached meshes. Persistence failure does not roll back the
// in-memory set.
func (s *Service) AddRunVertices(vertices []Vertex) error {
	version := s.set.Add(vertices)

	// Older versions can never be requested again
	s.cacheMu.Lock()
	for key := range s.cache {
		if key.version != version {
			delete(s.cache, key)
		}
	}
	s.cacheMu.Unlock()

	if s.store != nil {
		_, all := s.set.Snapshot()
		if err := s.store.SaveSnapshot(version, all); err != nil {
			s.events.EmitError("surface", err, map[string]interface{}{"version": version})
			return fmt.Errorf("failed to persist vertex snapshot: %w", err)
		}
		s.events.Emit(events.SnapshotSaved, "surface", map[string]interface{}{
			"version":  version,
			"vertices": len(all),
		})
	}
	return nil
}

// Mesh returns the reconstructed mesh at the given resolution, recomputing
// only when the vertex set changed since the last request. Returns
// domain.ErrNotAvailable before the first run completes.
func (s *Service) Mesh(resolution int) (*Mesh, error) {
	version, vertices := s.set.Snapshot()
	if len(vertices) == 0 {
		return nil, domain.ErrNotAvailable
	}

	key := cacheKey{version: version, resolution: resolution}
	s.cacheMu.Lock()
	if mesh, ok := s.cache[key]; ok {
		s.cacheMu.Unlock()
		return mesh, nil
	}
	s.cacheMu.Unlock()

	mesh := s.reconstructor.Reconstruct(vertices, resolution, s.baseRadius, s.displacementScale)

	s.cacheMu.Lock()
	s.cache[key] = mesh
	s.cacheMu.Unlock()

	s.events.Emit(events.SurfaceRebuilt, "surface", map[string]interface{}{
		"version":    version,
		"resolution": resolution,
		"vertices":   len(vertices),
		"grid_cells": mesh.VertexCount,
	})
	return mesh, nil
}

// VertexCount returns the size of the accumulated set
func (s *Service) VertexCount() int {
	return s.set.Len()
}

// Version returns the current vertex-set version
func (s *Service) Version() uint64 {
	return s.set.Version()
}
