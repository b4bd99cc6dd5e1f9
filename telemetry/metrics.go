package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const meterName = "memoscribe/telemetry"

// MeterConfig configures the OTLP metric exporter.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	Interval time.Duration
}

// InitMeter installs a global meter provider exporting over OTLP HTTP. The
// provider must be shut down on exit to flush the last interval.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns this package's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(meterName)
}

// Metrics holds the transcription instruments. A nil *Metrics records nothing.
type Metrics struct {
	transcriptions  metric.Int64Counter
	failures        metric.Int64Counter
	processing      metric.Float64Histogram
	realTimeFactor  metric.Float64Histogram
	tokensPerSecond metric.Float64Histogram
	cpu             metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	transcriptions, err := meter.Int64Counter("transcription.total",
		metric.WithDescription("Completed transcriptions"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.total counter: %w", err)
	}

	failures, err := meter.Int64Counter("transcription.failures",
		metric.WithDescription("Failed recognizer calls"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.failures counter: %w", err)
	}

	processing, err := meter.Float64Histogram("transcription.processing",
		metric.WithDescription("Recognizer processing time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.processing histogram: %w", err)
	}

	realTimeFactor, err := meter.Float64Histogram("transcription.rtf",
		metric.WithDescription("Audio seconds per processing second"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.rtf histogram: %w", err)
	}

	tokensPerSecond, err := meter.Float64Histogram("transcription.tokens_per_second",
		metric.WithDescription("Recognized tokens per processing second"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.tokens_per_second histogram: %w", err)
	}

	cpu, err := meter.Float64Histogram("transcription.cpu",
		metric.WithDescription("Process CPU time spent in the recognizer call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transcription.cpu histogram: %w", err)
	}

	return &Metrics{
		transcriptions:  transcriptions,
		failures:        failures,
		processing:      processing,
		realTimeFactor:  realTimeFactor,
		tokensPerSecond: tokensPerSecond,
		cpu:             cpu,
	}, nil
}

// Record records a completed transcription.
func (m *Metrics) Record(ctx context.Context, s Stats) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("engine", s.Engine))
	m.transcriptions.Add(ctx, 1, attrs)
	m.processing.Record(ctx, s.TranscriptionSeconds, attrs)
	m.realTimeFactor.Record(ctx, s.RealTimeFactor, attrs)
	m.tokensPerSecond.Record(ctx, s.TokensPerSecond, attrs)
	m.cpu.Record(ctx, s.CPUTotalSeconds, attrs)
}

// RecordFailure records a recognizer call that returned an error.
func (m *Metrics) RecordFailure(ctx context.Context, engine string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("engine", engine)))
}
