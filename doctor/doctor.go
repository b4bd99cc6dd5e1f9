package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"memoscribe/audio"
	"memoscribe/clipboard"
	"memoscribe/pipeline"
	"memoscribe/telemetry"
	"memoscribe/transcriber"
)

type Options struct {
	Out        io.Writer
	Handle     *transcriber.Handle
	Normalizer *audio.Normalizer
	Sampler    telemetry.Sampler
	LogDir     string
	// SamplePath is transcribed when set; otherwise a synthesized tone is used.
	SamplePath string
	// Clipboard adds a copy/read check. The previous contents are restored.
	Clipboard bool
}

type check struct {
	name string
	run  func(ctx context.Context) (string, error)
	// engine checks need every check before them to pass.
	engine bool
}

// Run executes diagnostic checks and returns an exit code (0=all pass, 1=any fail).
// Engine checks are skipped once an earlier check has failed.
func Run(ctx context.Context, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Sampler == nil {
		opts.Sampler = telemetry.ProcessSampler{}
	}
	d := &doctor{opts: opts}

	checks := []check{
		{"Log directory", d.checkLogDir, false},
		{"Resource counters", d.checkSampler, false},
		{"Audio decoding", d.checkAudio, false},
		{"Engine initialization", d.checkEngine, true},
		{"Transcription", d.checkTranscription, true},
	}
	if opts.Clipboard {
		checks = append(checks, check{name: "Clipboard", run: d.checkClipboard})
	}

	out := opts.Out
	fmt.Fprintln(out, "memoscribe doctor - system diagnostics")
	fmt.Fprintln(out, "======================================")

	allPass := true
	for i, c := range checks {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(checks), c.name)
		if c.engine && !allPass {
			fmt.Fprintln(out, "  SKIP: earlier check failed")
			continue
		}
		msg, err := c.run(ctx)
		if err != nil {
			fmt.Fprintf(out, "  FAIL: %v\n", err)
			allPass = false
			continue
		}
		fmt.Fprintf(out, "  PASS: %s\n", msg)
	}

	fmt.Fprintln(out)
	if allPass {
		fmt.Fprintln(out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(out, "Some checks failed. See details above.")
	return 1
}

type doctor struct {
	opts Options
	buf  audio.Buffer
}

func (d *doctor) checkLogDir(context.Context) (string, error) {
	dir := d.opts.LogDir
	if dir == "" {
		return "", fmt.Errorf("no log directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return "", fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return dir + " is writable", nil
}

func (d *doctor) checkSampler(context.Context) (string, error) {
	s, err := d.opts.Sampler.Sample()
	if err != nil {
		return fmt.Sprintf("unavailable (%v), stats will report 0", err), nil
	}
	return fmt.Sprintf("cpu %.2fs, rss %.1f MB", (s.CPUUser + s.CPUSystem).Seconds(), float64(s.RSS)/(1<<20)), nil
}

func (d *doctor) checkAudio(context.Context) (string, error) {
	target := d.opts.Handle.Format()
	if d.opts.SamplePath == "" {
		d.buf = audio.Tone(target, 440, 2)
		return fmt.Sprintf("synthesized 2.0s tone at %s", target), nil
	}
	n := d.opts.Normalizer
	if n == nil {
		n = audio.NewNormalizer()
	}
	buf, src, err := n.Normalize(d.opts.SamplePath, target)
	if err != nil {
		return "", err
	}
	d.buf = buf
	msg := fmt.Sprintf("%s: %.1fs %s -> %s", filepath.Base(d.opts.SamplePath), buf.Seconds(), src, target)
	if !audio.HasSpeech(buf) {
		msg += " (no speech detected)"
	}
	return msg, nil
}

func (d *doctor) checkEngine(ctx context.Context) (string, error) {
	h := d.opts.Handle
	stats, err := h.Initialize(ctx)
	if err != nil {
		return "", err
	}
	caps := h.Capabilities()
	return fmt.Sprintf("%s ready (model load %.2fs, init %.2fs, token timings %v)",
		h.Name(), stats.ModelLoad.Seconds(), stats.Init.Seconds(), caps.TokenTimings), nil
}

func (d *doctor) checkTranscription(ctx context.Context) (string, error) {
	p := pipeline.New(d.opts.Handle, d.opts.Normalizer, nil)
	out, err := p.RunBuffer(ctx, "doctor", d.buf)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.TranscriptText)
	if text == "" {
		text = "(no speech detected)"
	}
	return fmt.Sprintf("%q in %.2fs (RTF %.1fx)", text, out.Stats.TranscriptionSeconds, out.Stats.RealTimeFactor), nil
}

func (d *doctor) checkClipboard(context.Context) (string, error) {
	prev, _ := clipboard.Read()
	defer func() {
		if prev != "" {
			clipboard.Copy(prev)
		}
	}()

	sentinel := "memoscribe-doctor-test"
	if err := clipboard.Copy(sentinel); err != nil {
		return "", fmt.Errorf("copy: %w", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return "", fmt.Errorf("read: %w", err)
	}
	if got != sentinel {
		return "", fmt.Errorf("read back %q, want %q", got, sentinel)
	}
	return "copy and read verified", nil
}
