// Package heartbeat runs the beat cycle: reserve a budget slice, execute one
// circuit, commit the consumed time, derive metrics, and feed the encoding
// pipeline that grows the surface. One beat is in flight at a time; the
// reserve/commit pair around the execution is what keeps the quota hard.
package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/clients/quantum"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/config"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/database/repositories"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/events"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/budget"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/encoding"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/metrics"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/surface"
	"github.com/Tecnocrat/aios-quantum-sub000/internal/modules/topology"
)

// ErrBeatInFlight is returned when a trigger fires while a beat is still
// executing. The trigger is skipped, never queued.
var ErrBeatInFlight = errors.New("beat already in flight")

// Uploader pushes a completed run record to external storage. Optional;
// upload failures never fail the beat.
type Uploader interface {
	UploadRun(ctx context.Context, rec *domain.RunRecord) error
}

// Service orchestrates the beat cycle.
type Service struct {
	cfg     *config.Config
	ledger  *budget.Ledger
	runs    *repositories.RunRepository
	state   *repositories.SurfaceRepository
	surface *surface.Service
	events  *events.Manager
	log     zerolog.Logger

	backends []quantum.Backend
	uploader Uploader
	notify   func(*domain.RunRecord)

	topologyStrategy topology.Strategy
	colorStrategy    encoding.ColorStrategy

	mu       sync.Mutex
	lastBeat time.Time
}

// NewService wires the beat cycle. Strategy names are resolved here so a bad
// config fails at startup, not mid-beat.
func NewService(
	cfg *config.Config,
	ledger *budget.Ledger,
	runs *repositories.RunRepository,
	state *repositories.SurfaceRepository,
	surfaceSvc *surface.Service,
	em *events.Manager,
	backends []quantum.Backend,
	log zerolog.Logger,
) (*Service, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("at least one backend is required")
	}

	topoStrategy, err := topology.ParseStrategy(cfg.TopologyStrategy)
	if err != nil {
		return nil, err
	}
	colorStrategy, err := encoding.ParseColorStrategy(cfg.ColorStrategy)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:              cfg,
		ledger:           ledger,
		runs:             runs,
		state:            state,
		surface:          surfaceSvc,
		events:           em,
		backends:         backends,
		topologyStrategy: topoStrategy,
		colorStrategy:    colorStrategy,
		log:              log.With().Str("service", "heartbeat").Logger(),
	}, nil
}

// SetUploader attaches an optional cloud uploader
func (s *Service) SetUploader(u Uploader) {
	s.uploader = u
}

// SetNotify attaches an optional completion callback (stream broadcast)
func (s *Service) SetNotify(fn func(*domain.RunRecord)) {
	s.notify = fn
}

// Beat runs one full cycle. Returns nil on a skipped trigger (budget
// exhausted) because skipping is the designed behavior, not a failure; the
// skip is logged and emitted so operators can reconcile the remaining budget.
func (s *Service) Beat(ctx context.Context) (*domain.RunRecord, error) {
	if !s.mu.TryLock() {
		s.log.Warn().Msg("Trigger fired while a beat is in flight, skipping")
		return nil, ErrBeatInFlight
	}
	defer s.mu.Unlock()

	// Optional pacing gate on top of the cron schedule; manual triggers are
	// subject to it too.
	if s.cfg.MinBeatIntervalSeconds > 0 && !s.lastBeat.IsZero() {
		elapsed := time.Since(s.lastBeat).Seconds()
		if elapsed < s.cfg.MinBeatIntervalSeconds {
			s.log.Debug().
				Float64("elapsed_s", elapsed).
				Float64("min_interval_s", s.cfg.MinBeatIntervalSeconds).
				Msg("Trigger inside minimum interval, skipping")
			s.events.Emit(events.BeatSkipped, "heartbeat", map[string]interface{}{
				"reason":    "min_interval",
				"elapsed_s": elapsed,
			})
			return nil, nil
		}
	}

	beatNumber, err := s.runs.NextBeatNumber()
	if err != nil {
		return nil, err
	}

	s.events.Emit(events.BeatStarted, "heartbeat", map[string]interface{}{"beat": beatNumber})

	// Reserve the worst-case slice plus the safety margin before touching
	// the backend.
	requested := s.cfg.BeatCeilingSeconds * (1 + s.cfg.SafetyMargin)
	slice, err := s.ledger.Reserve(requested)
	if errors.Is(err, budget.ErrBudgetExceeded) {
		snap := s.ledger.Snapshot()
		s.log.Warn().
			Int("beat", beatNumber).
			Float64("requested", requested).
			Float64("remaining", snap.RemainingSeconds).
			Msg("Beat skipped, budget exhausted")
		s.events.Emit(events.BudgetExceeded, "heartbeat", map[string]interface{}{
			"beat":      beatNumber,
			"requested": requested,
			"remaining": snap.RemainingSeconds,
		})
		s.events.Emit(events.BeatSkipped, "heartbeat", map[string]interface{}{"beat": beatNumber})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	backend := s.nextBackend()
	result, billed, execErr := s.execute(ctx, backend, quantum.Request{
		NumQubits:  s.cfg.NumQubits,
		Shots:      s.cfg.Shots,
		BeatNumber: beatNumber,
	}, slice)

	// The reservation is settled no matter how the execution ended. A
	// failed or cancelled job still consumed processor time.
	s.ledger.Commit(billed)

	if execErr != nil {
		s.events.Emit(events.BeatFailed, "heartbeat", map[string]interface{}{
			"beat":  beatNumber,
			"error": execErr.Error(),
		})
		return nil, execErr
	}

	rec, err := s.assemble(beatNumber, result)
	if err != nil {
		return nil, err
	}
	if err := s.runs.Create(rec); err != nil {
		return nil, err
	}

	if err := s.grow(rec, result.Counts); err != nil {
		// The run record is already stored; a surface failure degrades the
		// mesh, not the heartbeat history.
		s.events.EmitError("heartbeat", err, map[string]interface{}{"beat": beatNumber})
	}

	if s.uploader != nil {
		if err := s.uploader.UploadRun(ctx, rec); err != nil {
			s.events.EmitError("heartbeat", err, map[string]interface{}{"beat": beatNumber})
		} else {
			s.events.Emit(events.UploadCompleted, "heartbeat", map[string]interface{}{"beat": beatNumber})
		}
	}

	if s.notify != nil {
		s.notify(rec)
	}

	s.lastBeat = time.Now()

	s.events.Emit(events.BeatCompleted, "heartbeat", map[string]interface{}{
		"beat":      beatNumber,
		"coherence": rec.Coherence,
		"entropy":   rec.Entropy,
		"billed_s":  billed,
	})

	s.log.Info().
		Int("beat", beatNumber).
		Str("backend", rec.BackendName).
		Float64("coherence", rec.Coherence).
		Float64("entropy", rec.Entropy).
		Float64("billed_s", billed).
		Msg("Beat completed")

	return rec, nil
}

// execute submits the circuit with bounded retries. Returns the successful
// result, the total seconds billed across all attempts, and the final error
// when every attempt failed.
func (s *Service) execute(ctx context.Context, backend quantum.Backend, req quantum.Request, slice float64) (*quantum.Result, float64, error) {
	var billed float64
	var lastErr error

	attempts := s.cfg.MaxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		execCtx, cancel := context.WithTimeout(ctx, time.Duration(slice*float64(time.Second)))
		result, err := backend.Execute(execCtx, req)
		cancel()

		if result != nil {
			billed += result.ElapsedSeconds
		}
		if err == nil && result != nil && result.Status == quantum.StatusSucceeded {
			return result, billed, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			// Caller cancellation: stop retrying, the billed time still
			// gets committed.
			return nil, billed, ctx.Err()
		}

		s.log.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Str("backend", backend.Name()).
			Msg("Execution attempt failed")

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return nil, billed, ctx.Err()
			case <-time.After(time.Duration(s.cfg.RetryBackoffMs) * time.Millisecond):
			}
		}
	}

	if lastErr == nil {
		lastErr = quantum.ErrExecutionFailed
	}
	return nil, billed, fmt.Errorf("%w: %v", quantum.ErrExecutionFailed, lastErr)
}

// nextBackend cycles through the configured backends, persisting the index
// so rotation survives restarts.
func (s *Service) nextBackend() quantum.Backend {
	idx, err := s.state.RotationIndex()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load rotation index, starting at 0")
		idx = 0
	}
	backend := s.backends[idx%len(s.backends)]
	if err := s.state.SaveRotationIndex(idx + 1); err != nil {
		s.log.Warn().Err(err).Msg("Failed to persist rotation index")
	}
	return backend
}

// assemble builds the exported run record from an execution result.
func (s *Service) assemble(beatNumber int, result *quantum.Result) (*domain.RunRecord, error) {
	m, err := metrics.Extract(result.Counts, metrics.DefaultTopN)
	if err != nil {
		return nil, err
	}

	snap := s.ledger.Snapshot()

	rec := &domain.RunRecord{
		RunID:            uuid.NewString(),
		BeatNumber:       beatNumber,
		BackendName:      result.BackendName,
		JobID:            result.JobID,
		ExecutionSeconds: result.ElapsedSeconds,
		NumQubits:        s.cfg.NumQubits,
		CircuitDepth:     result.CircuitDepth,
		Shots:            result.Counts.TotalShots(),
		Counts:           result.Counts,
		Coherence:        m.CoherenceEstimate,
		Entropy:          m.EntropyBits,
		TopStates:        m.TopStates,
		BudgetUsedTotal:  snap.ConsumedSeconds,
		BudgetRemaining:  snap.RemainingSeconds,
	}
	rec.Timestamps(time.Now())
	return rec, nil
}

// grow runs the encoding pipeline and appends the beat's vertices to the
// accumulated surface.
func (s *Service) grow(rec *domain.RunRecord, counts domain.Distribution) error {
	points, err := topology.Map(counts, topology.Options{
		Strategy:  s.topologyStrategy,
		Cap:       s.cfg.PointBudgetCap,
		Radius:    s.cfg.BaseRadius,
		Coherence: rec.Coherence,
	})
	if err != nil {
		return err
	}

	colorCfg := encoding.ColorConfig{
		Strategy:       s.colorStrategy,
		Lightness:      encoding.LightnessCoherence,
		HueOffset:      s.cfg.HueOffset,
		SaturationBase: 0.4,
		TimeRate:       0.05,
	}
	modCfg := encoding.ModulatorConfig{
		ResonanceEnabled:   true,
		ResonanceAmplitude: 0.1,
		ResonanceL:         3,
		ResonanceM:         2,
		Coherence:          rec.Coherence,
	}

	t := float64(rec.BeatNumber)
	vertices := make([]surface.Vertex, len(points))
	for i, p := range points {
		mod := encoding.Modulate(p.Position.Theta, p.Position.Phi, t, modCfg)

		// The strategy-scaled radius is what shapes the surface. Expressing
		// it as a height in displacement units means reconstruction puts the
		// measured location back at exactly the modulated radius.
		height := p.Radius*mod.Scale - s.cfg.BaseRadius
		if s.cfg.DisplacementScale > 0 {
			height /= s.cfg.DisplacementScale
		}

		vertices[i] = surface.Vertex{
			Position: p.Position,
			Height:   height,
			Color:    encoding.ColorFor(p.BitPattern, p.Probability, rec.Coherence, t, colorCfg),
			Beat:     rec.BeatNumber,
			Error:    p.Probability,
			Pattern:  p.BitPattern,
		}
	}

	return s.surface.AddRunVertices(vertices)
}
