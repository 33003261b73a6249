package heartbeat

import "context"

// BeatJob adapts the service to the scheduler's Job interface.
type BeatJob struct {
	svc *Service
}

// NewBeatJob creates the scheduled beat job
func NewBeatJob(svc *Service) *BeatJob {
	return &BeatJob{svc: svc}
}

// Name returns the job identifier
func (j *BeatJob) Name() string {
	return "quantum_heartbeat"
}

// Run executes one beat cycle
func (j *BeatJob) Run() error {
	_, err := j.svc.Beat(context.Background())
	return err
}
