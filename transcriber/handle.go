package transcriber

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"memoscribe/audio"
)

var errNoResult = errors.New("engine returned no result")

// Handle owns a shared engine and initializes it at most once. Create one at
// startup and pass it to every pipeline run.
type Handle struct {
	engine Engine

	mu    sync.Mutex
	ready bool
	stats InitStats
}

func NewHandle(e Engine) *Handle {
	return &Handle{engine: e}
}

func (h *Handle) Name() string { return h.engine.Name() }

func (h *Handle) Capabilities() Capabilities { return h.engine.Capabilities() }

// Format is the sample format buffers passed to Transcribe must have.
func (h *Handle) Format() audio.Format { return h.engine.Capabilities().Format }

// Initialize runs engine initialization unless an earlier call succeeded.
// Concurrent callers wait for the one in progress. A failure is returned as
// *EngineUnavailableError and the next call retries.
func (h *Handle) Initialize(ctx context.Context) (InitStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.ready {
		return h.stats, nil
	}
	stats, err := h.engine.Initialize(ctx)
	if err != nil {
		return InitStats{}, &EngineUnavailableError{Engine: h.engine.Name(), Err: err}
	}
	h.ready, h.stats = true, stats
	return stats, nil
}

func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ready
}

// InitStats reports the successful initialization's timings, zero before it.
func (h *Handle) InitStats() InitStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Transcribe initializes the engine if needed and runs one recognition.
func (h *Handle) Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error) {
	if _, err := h.Initialize(ctx); err != nil {
		return nil, err
	}
	if want := h.Format(); buf.Format != want {
		return nil, &TranscriptionError{
			Engine: h.engine.Name(),
			Err:    fmt.Errorf("buffer format %s does not match engine format %s", buf.Format, want),
		}
	}

	res, err := h.engine.Transcribe(ctx, buf)
	if err != nil {
		var te *TranscriptionError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &TranscriptionError{Engine: h.engine.Name(), Err: err}
	}
	if res == nil {
		return nil, &TranscriptionError{Engine: h.engine.Name(), Err: errNoResult}
	}
	return res, nil
}
