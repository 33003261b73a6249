package quantum

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tecnocrat/aios-quantum-sub000/internal/domain"
)

// Sampler is a local stand-in for a remote quantum backend. It synthesizes a
// plausible measurement distribution for the heartbeat circuit: one dominant
// all-zeros outcome whose weight drifts with the beat number, plus a tail of
// low-weight noise states. Deterministic for a given request, so repeated
// runs on identical inputs reproduce identical downstream geometry.
type Sampler struct {
	name    string
	latency time.Duration
	log     zerolog.Logger
}

// NewSampler creates a local sampler backend
func NewSampler(log zerolog.Logger) *Sampler {
	return &Sampler{
		name:    "local_sampler",
		latency: 50 * time.Millisecond,
		log:     log.With().Str("backend", "local_sampler").Logger(),
	}
}

// Name returns the backend identifier
func (s *Sampler) Name() string {
	return s.name
}

// Execute synthesizes counts for the requested circuit
func (s *Sampler) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.NumQubits <= 0 || req.Shots <= 0 {
		return nil, fmt.Errorf("%w: invalid request (qubits=%d shots=%d)", ErrExecutionFailed, req.NumQubits, req.Shots)
	}

	start := time.Now()

	select {
	case <-ctx.Done():
		return &Result{
			JobID:          uuid.NewString(),
			BackendName:    s.name,
			Status:         StatusCancelled,
			ElapsedSeconds: time.Since(start).Seconds(),
		}, ctx.Err()
	case <-time.After(s.latency):
	}

	counts := s.synthesize(req)

	res := &Result{
		JobID:          uuid.NewString(),
		BackendName:    s.name,
		Status:         StatusSucceeded,
		Counts:         counts,
		CircuitDepth:   req.NumQubits + 3,
		ElapsedSeconds: time.Since(start).Seconds(),
	}

	s.log.Debug().
		Str("job_id", res.JobID).
		Int("states", len(counts)).
		Float64("elapsed_s", res.ElapsedSeconds).
		Msg("Sampler execution complete")

	return res, nil
}

// synthesize builds the count distribution. Seeded by the request fields
// only, never the wall clock.
func (s *Sampler) synthesize(req Request) domain.Distribution {
	rng := rand.New(rand.NewSource(int64(req.BeatNumber)*7919 + int64(req.NumQubits)))

	// Dominant weight oscillates beat by beat, mimicking coherence drift.
	dominant := 0.55 + 0.35*math.Abs(math.Sin(float64(req.BeatNumber)*0.31))
	dominantShots := int(dominant * float64(req.Shots))

	counts := domain.Distribution{}
	zeros := make([]byte, req.NumQubits)
	for i := range zeros {
		zeros[i] = '0'
	}
	counts[string(zeros)] = dominantShots

	remaining := req.Shots - dominantShots
	maxState := 1 << req.NumQubits
	for remaining > 0 {
		state := rng.Intn(maxState)
		pattern := fmt.Sprintf("%0*b", req.NumQubits, state)
		take := 1 + rng.Intn(remaining)
		if take > remaining/2+1 {
			take = remaining/2 + 1
		}
		counts[pattern] += take
		remaining -= take
	}

	return counts
}
