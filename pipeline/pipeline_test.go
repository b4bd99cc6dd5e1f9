package pipeline

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memoscribe/align"
	"memoscribe/audio"
	"memoscribe/transcriber"
)

func writeMemo(t *testing.T, buf audio.Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, buf); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunTwentySecondMemo(t *testing.T) {
	path := writeMemo(t, audio.Silence(audio.DefaultFormat, 20))

	fake := transcriber.NewFake("hello world.", nil)
	fake.Tokens = []align.TokenTiming{{Token: "he", Start: 0.1}, {Token: "llo", Start: 0.3}, {Token: "world", Start: 0.9}}
	fake.ProcessingSeconds = 2
	p := New(transcriber.NewHandle(fake), nil, nil)

	out, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.TranscriptText != "hello world." {
		t.Errorf("TranscriptText = %q", out.TranscriptText)
	}
	want := []align.SentenceTimestamp{{Sentence: "hello world.", Start: 0.1}}
	if len(out.SentenceTimestamps) != 1 || out.SentenceTimestamps[0] != want[0] {
		t.Errorf("SentenceTimestamps = %+v, want %+v", out.SentenceTimestamps, want)
	}
	if out.Stats.AudioSeconds != 20 {
		t.Errorf("AudioSeconds = %v, want 20", out.Stats.AudioSeconds)
	}
	if out.Stats.TokenCount != 3 || out.Stats.RealTimeFactor != 10 || out.Stats.TokensPerSecond != 1.5 {
		t.Errorf("tokens=%d rtf=%v tps=%v", out.Stats.TokenCount, out.Stats.RealTimeFactor, out.Stats.TokensPerSecond)
	}
	if out.Stats.Engine != "fake" {
		t.Errorf("Engine = %q", out.Stats.Engine)
	}
	if out.Audio.Samples() != 0 {
		t.Errorf("kept %d samples without KeepAudio", out.Audio.Samples())
	}
	if !out.NoSpeech {
		t.Error("silent memo not flagged")
	}
}

func TestRunConvertsToEngineFormat(t *testing.T) {
	src := audio.Format{SampleRate: 44100, Channels: 2, Encoding: audio.Int16}
	path := writeMemo(t, audio.Tone(src, 440, 2))

	p := New(transcriber.NewHandle(transcriber.NewFake("buy milk", nil)), nil, nil)
	p.KeepAudio = true
	out, err := p.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Audio.Format != audio.DefaultFormat {
		t.Errorf("engine heard %v, want %v", out.Audio.Format, audio.DefaultFormat)
	}
	if math.Abs(out.Stats.AudioSeconds-2) > 1e-3 {
		t.Errorf("AudioSeconds = %v, want ~2", out.Stats.AudioSeconds)
	}
	// No token timings: a single sentence starts at offset 0.
	if len(out.SentenceTimestamps) != 1 || out.SentenceTimestamps[0].Start != 0 {
		t.Errorf("SentenceTimestamps = %+v", out.SentenceTimestamps)
	}
	if out.Stats.TokenCount != 2 {
		t.Errorf("TokenCount = %d, want 2", out.Stats.TokenCount)
	}
	if out.NoSpeech {
		t.Error("tone flagged as silent")
	}
}

func TestKeepAudio(t *testing.T) {
	path := writeMemo(t, audio.Tone(audio.Format{SampleRate: 8000, Channels: 1, Encoding: audio.Int16}, 300, 1))
	for _, keep := range []bool{false, true} {
		p := New(transcriber.NewHandle(transcriber.NewFake("ok", nil)), nil, nil)
		p.KeepAudio = keep
		out, err := p.Run(context.Background(), path)
		if err != nil {
			t.Fatalf("keep=%v: %v", keep, err)
		}
		if !keep {
			if out.Audio.Samples() != 0 {
				t.Errorf("kept %d samples", out.Audio.Samples())
			}
			continue
		}
		if out.Audio.Format != audio.DefaultFormat || math.Abs(out.Audio.Seconds()-1) > 1e-3 {
			t.Errorf("kept audio is %v, %vs", out.Audio.Format, out.Audio.Seconds())
		}
	}
}

func TestRunBufferLeavesInputAlone(t *testing.T) {
	in := audio.Tone(audio.DefaultFormat, 300, 1)
	p := New(transcriber.NewHandle(transcriber.NewFake("ok", nil)), nil, nil)
	p.KeepAudio = true

	out, err := p.RunBuffer(context.Background(), "memo-1", in)
	if err != nil {
		t.Fatalf("RunBuffer: %v", err)
	}
	out.Audio.Float32[0] = 42
	if in.Float32[0] == 42 {
		t.Error("output shares samples with the caller's buffer")
	}
}

func TestRunFailures(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "memo.m4a")
	if err := os.WriteFile(garbage, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := writeMemo(t, audio.Silence(audio.DefaultFormat, 1))

	failing := transcriber.NewFake("", nil)
	failing.FailInits = 1

	tests := []struct {
		name   string
		path   string
		engine *transcriber.Fake
		check  func(error) bool
		text   string
	}{
		{
			name:   "missing file",
			path:   filepath.Join(t.TempDir(), "gone.wav"),
			engine: transcriber.NewFake("x", nil),
			check:  func(err error) bool { var e *audio.DecodeError; return errors.As(err, &e) },
			text:   "could not be read",
		},
		{
			name:   "unknown container",
			path:   garbage,
			engine: transcriber.NewFake("x", nil),
			check:  func(err error) bool { var e *audio.DecodeError; return errors.As(err, &e) },
			text:   "could not be read",
		},
		{
			name:   "init failure",
			path:   good,
			engine: failing,
			check:  func(err error) bool { return errors.Is(err, transcriber.ErrFakeInit) },
			text:   "fake speech engine is unavailable",
		},
		{
			name:   "recognizer failure",
			path:   good,
			engine: transcriber.NewFake("", errors.New("model crashed")),
			check:  func(err error) bool { var e *transcriber.TranscriptionError; return errors.As(err, &e) },
			text:   "could not recognize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(transcriber.NewHandle(tt.engine), nil, nil)
			out, err := p.Run(context.Background(), tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if out != nil {
				t.Errorf("partial output returned: %+v", out)
			}
			if !tt.check(err) {
				t.Errorf("unexpected error type: %v", err)
			}
			if msg := FailureText(err); !strings.Contains(msg, tt.text) {
				t.Errorf("FailureText = %q, want it to mention %q", msg, tt.text)
			}
		})
	}
}

func TestInitFailureIsRetried(t *testing.T) {
	fake := transcriber.NewFake("second time lucky", nil)
	fake.FailInits = 1
	p := New(transcriber.NewHandle(fake), nil, nil)
	buf := audio.Silence(audio.DefaultFormat, 1)

	if _, err := p.RunBuffer(context.Background(), "m", buf); err == nil {
		t.Fatal("expected first run to fail")
	}
	out, err := p.RunBuffer(context.Background(), "m", buf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if out.TranscriptText != "second time lucky" {
		t.Errorf("TranscriptText = %q", out.TranscriptText)
	}
	if fake.Inits() != 2 || fake.Calls() != 1 {
		t.Errorf("inits=%d calls=%d, want 2 and 1", fake.Inits(), fake.Calls())
	}
}

func TestAllocationFailure(t *testing.T) {
	path := writeMemo(t, audio.Silence(audio.Format{SampleRate: 8000, Channels: 1, Encoding: audio.Int16}, 1))
	p := New(transcriber.NewHandle(transcriber.NewFake("x", nil)), &audio.Normalizer{MaxFrames: 100}, nil)

	_, err := p.Run(context.Background(), path)
	var e *audio.AllocationError
	if !errors.As(err, &e) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if msg := FailureText(err); !strings.Contains(msg, "too long") {
		t.Errorf("FailureText = %q", msg)
	}
}

func TestFailureText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{context.Canceled, "Transcription cancelled."},
		{&transcriber.TranscriptionError{Engine: "sidecar", Err: context.DeadlineExceeded}, "Transcription timed out."},
		{&audio.ConversionError{Err: errors.New("resampler")}, "Transcription failed: the recording could not be converted for the speech engine."},
		{errors.New("disk on fire"), "Transcription failed: disk on fire"},
	}
	for _, tt := range tests {
		if got := FailureText(tt.err); got != tt.want {
			t.Errorf("FailureText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
