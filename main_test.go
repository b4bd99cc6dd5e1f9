package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memoscribe/audio"
	"memoscribe/memo"
	"memoscribe/telemetry"
)

func writeMemo(t *testing.T, dir, name string, buf audio.Buffer) string {
	t.Helper()
	path := filepath.Join(dir, name)
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

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != 0 || out != "memoscribe dev\n" {
		t.Errorf("code=%d out=%q", code, out)
	}
}

func TestUsageWithoutFiles(t *testing.T) {
	code, _, errOut := runCLI(t, "-logpath", t.TempDir(), "-engine", "fake")
	if code != 2 || !strings.Contains(errOut, "Usage: memoscribe") {
		t.Errorf("code=%d stderr=%q", code, errOut)
	}
}

func TestUnknownEngine(t *testing.T) {
	code, _, errOut := runCLI(t, "-logpath", t.TempDir(), "-engine", "carrier-pigeon", "x.wav")
	if code != 1 || !strings.Contains(errOut, `unknown engine "carrier-pigeon"`) {
		t.Errorf("code=%d stderr=%q", code, errOut)
	}
}

func TestTranscribeFile(t *testing.T) {
	t.Setenv("MEMOSCRIBE_FAKE_TEXT", "Buy milk. Call mom.")
	dir := t.TempDir()
	logDir := filepath.Join(dir, "logs")
	dumpDir := filepath.Join(dir, "dump")
	path := writeMemo(t, dir, "errands.wav", audio.Tone(audio.Format{SampleRate: 44100, Channels: 2, Encoding: audio.Int16}, 440, 1))

	code, out, errOut := runCLI(t, "-logpath", logDir, "-engine", "fake", "-dump", dumpDir, path)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"errands", "Buy milk. Call mom.", "engine:     fake", "0:00.00  Buy milk."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	dumped, err := audio.Decode(filepath.Join(dumpDir, "errands.normalized.wav"))
	if err != nil {
		t.Fatalf("decoding dump: %v", err)
	}
	if dumped.Format != audio.DefaultFormat {
		t.Errorf("dump format = %v, want %v", dumped.Format, audio.DefaultFormat)
	}

	diag, err := os.ReadFile(filepath.Join(logDir, "diagnostics_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, event := range []string{"session_start", "normalize", "engine_init", "transcription", "session_end"} {
		if !strings.Contains(string(diag), event) {
			t.Errorf("diagnostics log missing %s:\n%s", event, diag)
		}
	}
	transcripts, err := os.ReadFile(filepath.Join(logDir, "transcribe_log.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(transcripts), "Buy milk. Call mom.") {
		t.Errorf("transcribe log = %q", transcripts)
	}
}

func TestJSONOutput(t *testing.T) {
	t.Setenv("MEMOSCRIBE_FAKE_TEXT", "hello there.")
	dir := t.TempDir()
	path := writeMemo(t, dir, "greeting.wav", audio.Silence(audio.DefaultFormat, 2))

	code, out, errOut := runCLI(t, "-logpath", dir, "-engine", "fake", "-json", path)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	rec, err := memo.Decode([]byte(out))
	if err != nil {
		t.Fatalf("Decode: %v\n%s", err, out)
	}
	if rec.Title != "greeting" || rec.Transcript != "hello there." || rec.Stats == nil || rec.Stats.AudioSeconds != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestFailedMemoExitsNonZero(t *testing.T) {
	dir := t.TempDir()
	code, out, _ := runCLI(t, "-logpath", dir, "-engine", "fake", filepath.Join(dir, "missing.wav"))
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !strings.Contains(out, "Transcription failed: the recording could not be read.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRunsSummary(t *testing.T) {
	dir := t.TempDir()
	path := writeMemo(t, dir, "memo.wav", audio.Tone(audio.DefaultFormat, 220, 0.5))

	code, out, errOut := runCLI(t, "-logpath", dir, "-engine", "fake", "-runs", "3", path)
	if code != 0 {
		t.Fatalf("code=%d stderr=%s", code, errOut)
	}
	for _, want := range []string{"memo (run 3/3)", "Summary (3 transcriptions)", "p95"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPercentileTable(t *testing.T) {
	var samples []telemetry.Stats
	for i := 1; i <= 10; i++ {
		samples = append(samples, telemetry.Stats{TranscriptionSeconds: float64(i) / 10, RealTimeFactor: float64(i)})
	}
	table := percentileTable(samples)
	lines := strings.Split(table, "\n")
	if len(lines) != 5 {
		t.Fatalf("table has %d lines:\n%s", len(lines), table)
	}
	if got := strings.Fields(lines[1]); strings.Join(got[2:], " ") != "100 500 900 900 1000" {
		t.Errorf("proc row = %q", lines[1])
	}
	if got := strings.Fields(lines[3]); strings.Join(got[1:], " ") != "1.0 5.0 9.0 9.0 10.0" {
		t.Errorf("rtf row = %q", lines[3])
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"", 20, []string{""}},
		{"short line", 20, []string{"short line"}},
		{"remember to water the plants tomorrow", 16, []string{"remember to", "water the plants", "tomorrow"}},
		{"supercalifragilistic word", 10, []string{"supercalifragilistic", "word"}},
		{"naïve café résumé über", 12, []string{"naïve café", "résumé über"}},
	}
	for _, tt := range tests {
		got := wrapText(tt.text, tt.width)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("wrapText(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
		}
	}
}

func TestFormatOffset(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "0:00.00"},
		{0.1, "0:00.10"},
		{61.234, "1:01.23"},
		{600, "10:00.00"},
	}
	for _, tt := range tests {
		if got := formatOffset(tt.sec); got != tt.want {
			t.Errorf("formatOffset(%v) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}
