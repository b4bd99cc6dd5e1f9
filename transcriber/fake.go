package transcriber

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"memoscribe/align"
	"memoscribe/audio"
)

var ErrFakeInit = errors.New("fake engine failed to initialize")

// Fake returns scripted results. It stands in for real engines in tests and
// dry runs.
type Fake struct {
	Text              string
	Tokens            []align.TokenTiming
	ProcessingSeconds float64
	Format            audio.Format
	Stats             InitStats
	// Network, when set, is attached to every result.
	Network *NetworkMetrics
	// FailInits makes the first FailInits calls to Initialize fail.
	FailInits int

	err error

	mu    sync.Mutex
	inits int
	calls int
}

func NewFake(text string, err error) *Fake {
	return &Fake{Text: text, Format: audio.DefaultFormat, err: err}
}

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Capabilities() Capabilities {
	return Capabilities{Format: f.Format, TokenTimings: f.Tokens != nil, ReportsProcessing: f.ProcessingSeconds > 0}
}

func (f *Fake) Initialize(ctx context.Context) (InitStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	if f.inits <= f.FailInits {
		return InitStats{}, ErrFakeInit
	}
	if err := ctx.Err(); err != nil {
		return InitStats{}, err
	}
	return f.Stats, nil
}

func (f *Fake) Transcribe(_ context.Context, buf audio.Buffer) (*Result, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, fmt.Errorf("fake transcriber error: %w", f.err)
	}
	return &Result{
		Text:              f.Text,
		Tokens:            f.Tokens,
		DurationSeconds:   buf.Seconds(),
		ProcessingSeconds: f.ProcessingSeconds,
		Network:           f.Network,
	}, nil
}

// Inits counts Initialize calls, failed ones included.
func (f *Fake) Inits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inits
}

func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
