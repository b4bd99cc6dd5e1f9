package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeWAVFile(t *testing.T, buf Buffer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := WriteWAV(f, buf); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNormalizeFastPathIsBitExact(t *testing.T) {
	for _, f := range []Format{
		DefaultFormat,
		{SampleRate: 16000, Channels: 1, Encoding: Int16},
		{SampleRate: 48000, Channels: 2, Encoding: Float32},
	} {
		t.Run(f.String(), func(t *testing.T) {
			in := Tone(f, 523.25, 0.5)
			path := writeWAVFile(t, in)

			out, src, err := NewNormalizer().Normalize(path, f)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if src != f {
				t.Errorf("source format = %v, want %v", src, f)
			}
			if out.Format != f || out.Samples() != in.Samples() {
				t.Fatalf("got %v with %d samples, want %v with %d", out.Format, out.Samples(), f, in.Samples())
			}
			for i := 0; i < in.Samples(); i++ {
				if out.at(i) != in.at(i) {
					t.Fatalf("sample %d changed: %v -> %v", i, in.at(i), out.at(i))
				}
			}
		})
	}
}

func TestNormalizeResamplesAndDownmixes(t *testing.T) {
	in := Tone(Format{SampleRate: 44100, Channels: 2, Encoding: Int16}, 440, 1)
	path := writeWAVFile(t, in)

	out, src, err := NewNormalizer().Normalize(path, DefaultFormat)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if src.SampleRate != 44100 || src.Channels != 2 || src.Encoding != Int16 {
		t.Errorf("source format = %v", src)
	}
	if out.Format != DefaultFormat {
		t.Fatalf("format = %v, want %v", out.Format, DefaultFormat)
	}
	if d := math.Abs(out.Seconds() - 1); d > 2.0/16000 {
		t.Errorf("duration = %vs, want ~1s", out.Seconds())
	}

	var peak float32
	for _, s := range out.Float32 {
		if s > peak {
			peak = s
		}
	}
	if peak < 0.45 || peak > 0.55 {
		t.Errorf("peak = %v, want ~0.5", peak)
	}
}

func TestNormalizeDurationOfLongMemo(t *testing.T) {
	in := Silence(DefaultFormat, 20)
	path := writeWAVFile(t, in)
	out, _, err := NewNormalizer().Normalize(path, DefaultFormat)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := out.Seconds(); got != 20.0 {
		t.Errorf("duration = %v, want 20", got)
	}
}

func TestNormalizeDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.wav"), garbage} {
		_, _, err := NewNormalizer().Normalize(path, DefaultFormat)
		var decErr *DecodeError
		if !errors.As(err, &decErr) {
			t.Fatalf("Normalize(%s): expected DecodeError, got %v", path, err)
		}
		if decErr.Path != path {
			t.Errorf("DecodeError.Path = %q, want %q", decErr.Path, path)
		}
	}
}

func TestNormalizeRejectsInvalidTarget(t *testing.T) {
	_, _, err := NewNormalizer().Normalize("unused.wav", Format{SampleRate: 16000, Channels: 4, Encoding: Float32})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestNormalizeBufferCopies(t *testing.T) {
	in := Buffer{Format: DefaultFormat, Float32: []float32{0.1, 0.2}}
	out, err := NewNormalizer().NormalizeBuffer(in, DefaultFormat)
	if err != nil {
		t.Fatal(err)
	}
	out.Float32[0] = 1
	if in.Float32[0] != 0.1 {
		t.Error("fast path aliased the input buffer")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Container
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), ContainerWAV},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), ContainerFLAC},
		{"ogg", []byte("OggS\x00\x02"), ContainerVorbis},
		{"mp3 id3", []byte("ID3\x04\x00"), ContainerMP3},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x64}, ContainerMP3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff(tt.data)
			if err != nil {
				t.Fatalf("Sniff: %v", err)
			}
			if got != tt.want {
				t.Errorf("Sniff = %q, want %q", got, tt.want)
			}
		})
	}

	for _, data := range [][]byte{nil, []byte("RIFF\x00\x00\x00\x00AVI "), []byte("hello")} {
		if _, err := Sniff(data); err == nil {
			t.Errorf("Sniff(%q): expected error", data)
		}
	}
}

func TestParseEncoding(t *testing.T) {
	for in, want := range map[string]Encoding{"f32": Float32, "Float32": Float32, " s16 ": Int16, "pcm16": Int16} {
		got, err := ParseEncoding(in)
		if err != nil || got != want {
			t.Errorf("ParseEncoding(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseEncoding("u8"); err == nil {
		t.Error("ParseEncoding(u8): expected error")
	}
}
