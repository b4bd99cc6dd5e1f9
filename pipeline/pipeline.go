package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"memoscribe/align"
	"memoscribe/audio"
	"memoscribe/log"
	"memoscribe/telemetry"
	"memoscribe/transcriber"
)

// Output is everything one successful transcription produces.
type Output struct {
	TranscriptText     string
	SentenceTimestamps []align.SentenceTimestamp
	Stats              telemetry.Stats

	// Result is the engine's raw answer, kept for network and upload details.
	Result *transcriber.Result
	// Audio is the normalized buffer the engine heard. It is empty unless
	// the Pipeline's KeepAudio is set.
	Audio audio.Buffer
	// NoSpeech is set when the audio is too quiet to hold a voice. The
	// engine still runs; this only flags the memo.
	NoSpeech bool
}

// Pipeline runs normalize, recognize and align in order. One Pipeline can
// serve many memos at once; the Handle is the only state they share.
type Pipeline struct {
	Handle     *transcriber.Handle
	Normalizer *audio.Normalizer
	Collector  *telemetry.Collector
	// KeepAudio retains the normalized buffer in Output.Audio.
	KeepAudio bool
}

func New(h *transcriber.Handle, n *audio.Normalizer, c *telemetry.Collector) *Pipeline {
	if n == nil {
		n = audio.NewNormalizer()
	}
	if c == nil {
		c = telemetry.NewCollector(nil)
	}
	if c.OnSampleError == nil {
		c.OnSampleError = func(err error) {
			log.Warnf("resource counters unavailable: %v", err)
		}
	}
	return &Pipeline{Handle: h, Normalizer: n, Collector: c}
}

// Run transcribes the audio file at path. Any error aborts the attempt and
// no partial output is returned.
func (p *Pipeline) Run(ctx context.Context, path string) (*Output, error) {
	memo := filepath.Base(path)
	target := p.Handle.Format()

	start := time.Now()
	buf, src, err := p.Normalizer.Normalize(path, target)
	if err != nil {
		log.Failure("normalize", memo, err)
		return nil, err
	}
	log.Normalize(path, src.String(), target.String(), src == target, msSince(start))

	return p.transcribe(ctx, memo, buf)
}

// RunBuffer transcribes already decoded audio, converting it first when its
// format differs from the engine's. The caller keeps ownership of buf.
func (p *Pipeline) RunBuffer(ctx context.Context, memo string, buf audio.Buffer) (*Output, error) {
	target := p.Handle.Format()

	start := time.Now()
	norm, err := p.Normalizer.NormalizeBuffer(buf, target)
	if err != nil {
		log.Failure("normalize", memo, err)
		return nil, err
	}
	log.Normalize(memo, buf.Format.String(), target.String(), buf.Format == target, msSince(start))

	return p.transcribe(ctx, memo, norm)
}

func (p *Pipeline) transcribe(ctx context.Context, memo string, buf audio.Buffer) (*Output, error) {
	// Initialize outside the measured call so one-time setup never counts
	// as transcription time.
	wasReady := p.Handle.Ready()
	initStats, err := p.Handle.Initialize(ctx)
	if err != nil {
		log.Failure("init", memo, err)
		return nil, err
	}
	if !wasReady {
		log.EngineInit(p.Handle.Name(), initStats.ModelLoad.Seconds(), initStats.Init.Seconds())
	}

	res, stats, err := p.Collector.Collect(ctx, p.Handle, buf)
	if err != nil {
		log.Failure("transcribe", memo, err)
		return nil, err
	}

	sentences := align.Align(res.Text, res.Tokens, stats.AudioSeconds)

	logNetwork(p.Handle.Name(), res)
	log.Transcription(logMetrics(stats, len(sentences)), p.Handle.Name(), memo)
	log.TranscriptionText(res.Text)

	out := &Output{
		TranscriptText:     res.Text,
		SentenceTimestamps: sentences,
		Stats:              stats,
		Result:             res,
		NoSpeech:           !audio.HasSpeech(buf),
	}
	if p.KeepAudio {
		out.Audio = buf
	}
	return out, nil
}

func logMetrics(s telemetry.Stats, sentences int) log.Metrics {
	return log.Metrics{
		AudioS:        s.AudioSeconds,
		ModelLoadS:    s.ModelLoadSeconds,
		InitS:         s.InitSeconds,
		ProcessingS:   s.TranscriptionSeconds,
		WallS:         s.WallSeconds,
		RTF:           s.RealTimeFactor,
		Tokens:        s.TokenCount,
		TokensPerS:    s.TokensPerSecond,
		CPUUserS:      s.CPUUserSeconds,
		CPUSystemS:    s.CPUSystemSeconds,
		RSSBeforeMB:   mb(s.RSSBeforeBytes),
		RSSAfterMB:    mb(s.RSSAfterBytes),
		RSSDeltaMB:    mb(s.RSSDeltaBytes),
		HeapDeltaMB:   mb(s.HeapDeltaBytes),
		SentenceCount: sentences,
	}
}

func logNetwork(engine string, res *transcriber.Result) {
	if res.Network == nil {
		return
	}
	n := res.Network
	m := log.NetworkMetrics{
		DNSTimeMs:   ms(n.DNS),
		TCPTimeMs:   ms(n.TCP),
		TLSTimeMs:   ms(n.TLS),
		TTFBMs:      ms(n.TTFB),
		DownloadMs:  ms(n.Download),
		TotalTimeMs: ms(n.Total),
		ConnReused:  n.ConnReused,
		TLSProto:    n.TLSProtocol,
	}
	if u := res.Upload; u != nil {
		m.EncodeTimeMs = ms(u.EncodeTime)
		m.CompressedKB = u.CompressedKB
	}
	log.Network(m, engine)
}

func mb(b uint64) float64 { return float64(b) / (1 << 20) }

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func msSince(t time.Time) float64 { return ms(time.Since(t)) }
