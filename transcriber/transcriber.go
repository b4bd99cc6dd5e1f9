package transcriber

import (
	"context"
	"net/http"
	"time"

	"memoscribe/align"
	"memoscribe/audio"
)

type NetworkMetrics struct {
	DNS        time.Duration
	ConnWait   time.Duration
	TCP        time.Duration
	TLS        time.Duration
	ReqHeaders time.Duration
	ReqBody    time.Duration
	TTFB       time.Duration
	Download   time.Duration
	Total      time.Duration

	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// UploadStats describes the compressed payload of engines that upload audio.
type UploadStats struct {
	RawKB          float64
	CompressedKB   float64
	CompressionPct float64
	EncodeTime     time.Duration
}

type Result struct {
	Text   string
	Tokens []align.TokenTiming // nil when the engine has no token timings
	// DurationSeconds is the length of the recognized audio.
	DurationSeconds float64
	// ProcessingSeconds is the engine's own compute time, 0 if it doesn't say.
	ProcessingSeconds float64

	Network   *NetworkMetrics
	Upload    *UploadStats
	RequestID string
}

// Capabilities is what an engine accepts and what it reports back.
type Capabilities struct {
	Format            audio.Format
	TokenTimings      bool
	ReportsProcessing bool
}

type InitStats struct {
	ModelLoad time.Duration
	Init      time.Duration
}

// Engine is a speech recognizer. Transcribe must be safe to call from several
// goroutines once Initialize has succeeded.
type Engine interface {
	Name() string
	Capabilities() Capabilities
	Initialize(ctx context.Context) (InitStats, error)
	Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error)
}

// Options configures the engines built by a Registry.
type Options struct {
	Format   audio.Format
	Language string

	SidecarURL     string
	SidecarModel   string
	SidecarTimeout time.Duration

	FakeText string
}
