package transcriber

import (
	"context"
	"time"

	"memoscribe/audio"
)

// Dictator is a platform dictation service: text in, no timings out.
type Dictator interface {
	Dictate(ctx context.Context, buf audio.Buffer) (string, error)
}

// DictatorFunc adapts a function to Dictator.
type DictatorFunc func(ctx context.Context, buf audio.Buffer) (string, error)

func (f DictatorFunc) Dictate(ctx context.Context, buf audio.Buffer) (string, error) {
	return f(ctx, buf)
}

// authorizer is implemented by dictation services that need permission
// before first use.
type authorizer interface {
	Authorize(ctx context.Context) error
}

// Dictation adapts a Dictator. Duration comes from the buffer and processing
// time is left at 0 for the caller to measure.
type Dictation struct {
	name     string
	format   audio.Format
	dictator Dictator
}

func NewDictation(name string, format audio.Format, d Dictator) *Dictation {
	return &Dictation{name: name, format: format, dictator: d}
}

func (d *Dictation) Name() string { return d.name }

func (d *Dictation) Capabilities() Capabilities {
	return Capabilities{Format: d.format}
}

func (d *Dictation) Initialize(ctx context.Context) (InitStats, error) {
	a, ok := d.dictator.(authorizer)
	if !ok {
		return InitStats{}, nil
	}
	start := time.Now()
	if err := a.Authorize(ctx); err != nil {
		return InitStats{}, err
	}
	return InitStats{Init: time.Since(start)}, nil
}

func (d *Dictation) Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error) {
	text, err := d.dictator.Dictate(ctx, buf)
	if err != nil {
		return nil, err
	}
	return &Result{Text: text, DurationSeconds: buf.Seconds()}, nil
}
