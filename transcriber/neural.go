package transcriber

import (
	"context"
	"fmt"
	"time"

	"memoscribe/align"
	"memoscribe/audio"
)

// NeuralBackend is an on-device model runtime.
type NeuralBackend interface {
	LoadModel(ctx context.Context) error
	InitEngine(ctx context.Context) error
	Decode(ctx context.Context, buf audio.Buffer) (NeuralOutput, error)
}

type NeuralOutput struct {
	Text              string
	Tokens            []align.TokenTiming
	ProcessingSeconds float64
}

// Neural adapts a NeuralBackend. It always reports token timings and the
// backend's own processing time.
type Neural struct {
	name    string
	format  audio.Format
	backend NeuralBackend
}

func NewNeural(name string, format audio.Format, backend NeuralBackend) *Neural {
	return &Neural{name: name, format: format, backend: backend}
}

func (n *Neural) Name() string { return n.name }

func (n *Neural) Capabilities() Capabilities {
	return Capabilities{Format: n.format, TokenTimings: true, ReportsProcessing: true}
}

func (n *Neural) Initialize(ctx context.Context) (InitStats, error) {
	var stats InitStats
	start := time.Now()
	if err := n.backend.LoadModel(ctx); err != nil {
		return InitStats{}, fmt.Errorf("load model: %w", err)
	}
	stats.ModelLoad = time.Since(start)

	start = time.Now()
	if err := n.backend.InitEngine(ctx); err != nil {
		return InitStats{}, fmt.Errorf("init engine: %w", err)
	}
	stats.Init = time.Since(start)
	return stats, nil
}

func (n *Neural) Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error) {
	out, err := n.backend.Decode(ctx, buf)
	if err != nil {
		return nil, err
	}
	tokens := out.Tokens
	if tokens == nil {
		tokens = []align.TokenTiming{}
	}
	return &Result{
		Text:              out.Text,
		Tokens:            tokens,
		DurationSeconds:   buf.Seconds(),
		ProcessingSeconds: out.ProcessingSeconds,
	}, nil
}
