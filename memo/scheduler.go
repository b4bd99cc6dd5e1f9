package memo

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"memoscribe/pipeline"
)

// ErrInFlight is returned when a memo already has a transcription running.
var ErrInFlight = errors.New("memo is already being transcribed")

// Runner is the transcription step. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, path string) (*pipeline.Output, error)
}

// Scheduler allows at most one transcription per memo at a time. Different
// memos run independently.
type Scheduler struct {
	runner Runner

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

func NewScheduler(r Runner) *Scheduler {
	return &Scheduler{runner: r, inFlight: make(map[uuid.UUID]struct{})}
}

// Transcribe runs one attempt for rec and stores its outcome in rec, the
// failure message included. It is never retried.
func (s *Scheduler) Transcribe(ctx context.Context, rec *Record) (*pipeline.Output, error) {
	if !s.acquire(rec.ID) {
		return nil, ErrInFlight
	}
	defer s.release(rec.ID)

	out, err := s.runner.Run(ctx, rec.AudioPath)
	if err != nil {
		rec.ApplyFailure(err)
		return nil, err
	}
	rec.Apply(out)
	return out, nil
}

// Outcome is one memo's result in a batch. Exactly one field is set.
type Outcome struct {
	Output *pipeline.Output
	Err    error
}

// TranscribeAll transcribes recs with up to workers running at once. The
// returned outcomes line up with recs.
func (s *Scheduler) TranscribeAll(ctx context.Context, recs []*Record, workers int) []Outcome {
	workers = max(workers, 1)
	results := make([]Outcome, len(recs))
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, rec := range recs {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out, err := s.Transcribe(ctx, rec)
			results[i] = Outcome{Output: out, Err: err}
		}()
	}
	wg.Wait()
	return results
}

func (s *Scheduler) acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[id]; busy {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *Scheduler) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
