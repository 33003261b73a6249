package repositories

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/surface"
)

// SurfaceRepository persists accumulated vertex sets and small pieces of
// scheduler state (backend rotation index) across restarts.
type SurfaceRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSurfaceRepository creates a new surface repository
func NewSurfaceRepository(db *sql.DB, log zerolog.Logger) *SurfaceRepository {
	return &SurfaceRepository{
		db:  db,
		log: log.With().Str("repository", "surface").Logger(),
	}
}

// SaveSnapshot stores the vertex set as a msgpack blob. The snapshot is a
// single row; each save replaces the previous one.
func (r *SurfaceRepository) SaveSnapshot(version uint64, vertices []surface.Vertex) error {
	blob, err := msgpack.Marshal(vertices)
	if err != nil {
		return fmt.Errorf("failed to encode vertex snapshot: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO surface_snapshots (id, version, vertices_blob, updated_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			vertices_blob = excluded.vertices_blob,
			updated_at = excluded.updated_at
	`, int64(version), blob, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store vertex snapshot: %w", err)
	}

	r.log.Debug().Uint64("version", version).Int("vertices", len(vertices)).Msg("Vertex snapshot stored")
	return nil
}

// LoadSnapshot returns the stored vertex set, or (0, nil, nil) when no
// snapshot exists.
func (r *SurfaceRepository) LoadSnapshot() (uint64, []surface.Vertex, error) {
	var version int64
	var blob []byte

	err := r.db.QueryRow(`SELECT version, vertices_blob FROM surface_snapshots WHERE id = 1`).
		Scan(&version, &blob)
	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("failed to load vertex snapshot: %w", err)
	}

	var vertices []surface.Vertex
	if err := msgpack.Unmarshal(blob, &vertices); err != nil {
		return 0, nil, fmt.Errorf("failed to decode vertex snapshot: %w", err)
	}
	return uint64(version), vertices, nil
}

// RotationIndex returns the persisted backend rotation index (0 when unset)
func (r *SurfaceRepository) RotationIndex() (int, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM scheduler_state WHERE key = 'rotation_index'`).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load rotation index: %w", err)
	}
	idx, err := strconv.Atoi(value)
	if err != nil {
		return 0, nil
	}
	return idx, nil
}

// SaveRotationIndex persists the backend rotation index
func (r *SurfaceRepository) SaveRotationIndex(idx int) error {
	_, err := r.db.Exec(`
		INSERT INTO scheduler_state (key, value) VALUES ('rotation_index', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(idx))
	if err != nil {
		return fmt.Errorf("failed to store rotation index: %w", err)
	}
	return nil
}
