package telemetry

import (
	"context"
	"time"

	"memoscribe/audio"
	"memoscribe/transcriber"
)

// Recognizer is the call being measured. *transcriber.Handle satisfies it.
type Recognizer interface {
	Name() string
	Transcribe(ctx context.Context, buf audio.Buffer) (*transcriber.Result, error)
}

type initReporter interface {
	InitStats() transcriber.InitStats
}

// Collector wraps exactly one recognizer call with resource sampling.
type Collector struct {
	Sampler Sampler
	Now     func() time.Time
	// Metrics, if set, receives every outcome.
	Metrics *Metrics
	// OnSampleError is told about counters that could not be read. The
	// affected measurements degrade to 0.
	OnSampleError func(error)
}

func NewCollector(metrics *Metrics) *Collector {
	return &Collector{Sampler: ProcessSampler{}, Now: time.Now, Metrics: metrics}
}

// Collect runs r once on buf. Recognizer errors are returned unchanged; a
// failing sampler never fails the call.
func (c *Collector) Collect(ctx context.Context, r Recognizer, buf audio.Buffer) (*transcriber.Result, Stats, error) {
	before := c.sample()
	start := c.now()
	res, err := r.Transcribe(ctx, buf)
	wall := c.now().Sub(start)
	after := c.sample()

	if err != nil {
		c.Metrics.RecordFailure(ctx, r.Name())
		return nil, Stats{}, err
	}

	m := Measurement{
		Engine:       r.Name(),
		Result:       res,
		Wall:         wall,
		Before:       before,
		After:        after,
		AudioSeconds: buf.Seconds(),
	}
	if ir, ok := r.(initReporter); ok {
		m.Init = ir.InitStats()
	}
	stats := Derive(m)
	c.Metrics.Record(ctx, stats)
	return res, stats, nil
}

func (c *Collector) sample() Sample {
	if c.Sampler == nil {
		return Sample{}
	}
	s, err := c.Sampler.Sample()
	if err != nil && c.OnSampleError != nil {
		c.OnSampleError(err)
	}
	return s
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
