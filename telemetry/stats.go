package telemetry

import (
	"math"
	"strings"
	"time"

	"memoscribe/align"
	"memoscribe/transcriber"
)

// Stats describes one transcription attempt. A re-transcription produces a
// new Stats; records are never merged.
type Stats struct {
	Engine string `json:"engine"`

	ModelLoadSeconds     float64 `json:"model_load_seconds"`
	InitSeconds          float64 `json:"init_seconds"`
	TranscriptionSeconds float64 `json:"transcription_seconds"`
	WallSeconds          float64 `json:"wall_seconds"`
	AudioSeconds         float64 `json:"audio_seconds"`
	RealTimeFactor       float64 `json:"real_time_factor"`

	TokenCount      int     `json:"token_count"`
	TokensPerSecond float64 `json:"tokens_per_second"`

	CPUUserSeconds   float64 `json:"cpu_user_seconds"`
	CPUSystemSeconds float64 `json:"cpu_system_seconds"`
	CPUTotalSeconds  float64 `json:"cpu_total_seconds"`

	RSSBeforeBytes uint64 `json:"rss_before_bytes"`
	RSSAfterBytes  uint64 `json:"rss_after_bytes"`
	RSSDeltaBytes  uint64 `json:"rss_delta_bytes"`
	HeapDeltaBytes uint64 `json:"heap_delta_bytes"`
}

// Measurement is the raw material of Stats: what one recognizer call
// returned and the counters around it.
type Measurement struct {
	Engine string
	Result *transcriber.Result
	Init   transcriber.InitStats
	Wall   time.Duration
	Before Sample
	After  Sample
	// AudioSeconds is used when the result carries no duration.
	AudioSeconds float64
}

// Derive computes Stats. Deltas that would be negative are reported as 0,
// and rates are 0 when there is no processing time to divide by.
func Derive(m Measurement) Stats {
	res := m.Result
	if res == nil {
		res = &transcriber.Result{}
	}

	wall := clampDuration(m.Wall).Seconds()
	processing := res.ProcessingSeconds
	if !(processing > 0) || math.IsInf(processing, 0) {
		processing = wall
	}
	audioSeconds := res.DurationSeconds
	if !(audioSeconds > 0) {
		audioSeconds = math.Max(m.AudioSeconds, 0)
	}

	tokens := TokenCount(res.Text, res.Tokens)
	user := clampDuration(m.After.CPUUser - m.Before.CPUUser).Seconds()
	system := clampDuration(m.After.CPUSystem - m.Before.CPUSystem).Seconds()

	return Stats{
		Engine:               m.Engine,
		ModelLoadSeconds:     clampDuration(m.Init.ModelLoad).Seconds(),
		InitSeconds:          clampDuration(m.Init.Init).Seconds(),
		TranscriptionSeconds: processing,
		WallSeconds:          wall,
		AudioSeconds:         audioSeconds,
		RealTimeFactor:       rate(audioSeconds, processing),
		TokenCount:           tokens,
		TokensPerSecond:      rate(float64(tokens), processing),
		CPUUserSeconds:       user,
		CPUSystemSeconds:     system,
		CPUTotalSeconds:      user + system,
		RSSBeforeBytes:       m.Before.RSS,
		RSSAfterBytes:        m.After.RSS,
		RSSDeltaBytes:        clampDelta(m.Before.RSS, m.After.RSS),
		HeapDeltaBytes:       clampDelta(m.Before.GoHeap, m.After.GoHeap),
	}
}

// TokenCount prefers the engine's tokens and otherwise counts words. Any
// non-empty text counts as at least one token.
func TokenCount(text string, tokens []align.TokenTiming) int {
	if len(tokens) > 0 {
		return len(tokens)
	}
	n := len(strings.Fields(text))
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

func rate(n, seconds float64) float64 {
	if !(seconds > 0) {
		return 0
	}
	r := n / seconds
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

func clampDuration(d time.Duration) time.Duration {
	return max(d, 0)
}

func clampDelta(before, after uint64) uint64 {
	if after < before {
		return 0
	}
	return after - before
}
