package audio

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultChannels   = 1
)

type Encoding int

const (
	Float32 Encoding = iota + 1
	Int16
)

func (e Encoding) String() string {
	switch e {
	case Float32:
		return "f32"
	case Int16:
		return "s16"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// ParseEncoding accepts the names printed by Encoding.String plus a few aliases.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f32", "float32", "float":
		return Float32, nil
	case "s16", "int16", "pcm16":
		return Int16, nil
	default:
		return 0, fmt.Errorf("unknown sample encoding %q (use f32 or s16)", s)
	}
}

type Format struct {
	SampleRate int
	Channels   int
	Encoding   Encoding
}

// DefaultFormat is what neural recognizers usually expect: 16 kHz mono float32.
var DefaultFormat = Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels, Encoding: Float32}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Encoding)
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels < 1 || f.Channels > 2 {
		return fmt.Errorf("unsupported channel count %d", f.Channels)
	}
	if f.Encoding != Float32 && f.Encoding != Int16 {
		return fmt.Errorf("unsupported sample encoding %v", f.Encoding)
	}
	return nil
}

// Buffer holds interleaved samples. Only the slice matching Format.Encoding is set.
type Buffer struct {
	Format  Format
	Float32 []float32
	Int16   []int16
}

func (b Buffer) Samples() int {
	if b.Format.Encoding == Int16 {
		return len(b.Int16)
	}
	return len(b.Float32)
}

func (b Buffer) Frames() int {
	if b.Format.Channels <= 0 {
		return 0
	}
	return b.Samples() / b.Format.Channels
}

func (b Buffer) Seconds() float64 {
	if b.Format.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.Format.SampleRate)
}

func (b Buffer) Duration() time.Duration {
	return time.Duration(b.Seconds() * float64(time.Second))
}

// at returns sample i scaled to [-1, 1].
func (b Buffer) at(i int) float64 {
	if b.Format.Encoding == Int16 {
		return float64(b.Int16[i]) / 32768.0
	}
	return float64(b.Float32[i])
}

func (b Buffer) clone() Buffer {
	out := Buffer{Format: b.Format}
	if b.Int16 != nil {
		out.Int16 = make([]int16, len(b.Int16))
		copy(out.Int16, b.Int16)
	}
	if b.Float32 != nil {
		out.Float32 = make([]float32, len(b.Float32))
		copy(out.Float32, b.Float32)
	}
	return out
}
