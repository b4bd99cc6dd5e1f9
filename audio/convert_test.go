package audio

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestCapacity(t *testing.T) {
	tests := []struct {
		frames, from, to int
		want             int
	}{
		{0, 48000, 16000, 1},
		{48000, 48000, 16000, 16001},
		{44100, 44100, 16000, 16001},
		{1, 44100, 16000, 2},
		{100, 8000, 16000, 201},
		{3, 3, 2, 3},
	}
	for _, tt := range tests {
		got, err := Capacity(tt.frames, tt.from, tt.to)
		if err != nil {
			t.Fatalf("Capacity(%d, %d, %d): %v", tt.frames, tt.from, tt.to, err)
		}
		if got != tt.want {
			t.Errorf("Capacity(%d, %d, %d) = %d, want %d", tt.frames, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCapacityRejectsBadInput(t *testing.T) {
	if _, err := Capacity(-1, 16000, 16000); err == nil {
		t.Error("negative frames: expected error")
	}
	if _, err := Capacity(10, 0, 16000); err == nil {
		t.Error("zero source rate: expected error")
	}
	if _, err := Capacity(math.MaxInt/2, 8000, 48000); !errors.Is(err, errCapacityOverflow) {
		t.Errorf("overflow: got %v", err)
	}
}

// The reserved capacity must hold everything the resampler emits for every
// common recording rate, in both directions.
func TestConvertCapacitySuffices(t *testing.T) {
	rates := []int{8000, 11025, 12000, 22050, 44100, 48000}
	lengths := []float64{0.01, 0.5, 1.37}
	for _, rate := range rates {
		for _, secs := range lengths {
			for _, dir := range [][2]int{{rate, 16000}, {16000, rate}} {
				from, to := dir[0], dir[1]
				name := fmt.Sprintf("%d->%d/%.2fs", from, to, secs)
				t.Run(name, func(t *testing.T) {
					in := Tone(Format{SampleRate: from, Channels: 1, Encoding: Float32}, 440, secs)
					out, err := NewNormalizer().Convert(in, Format{SampleRate: to, Channels: 1, Encoding: Float32})
					if err != nil {
						t.Fatalf("Convert: %v", err)
					}
					capacity, _ := Capacity(in.Frames(), from, to)
					if out.Frames() == 0 || out.Frames() > capacity {
						t.Fatalf("frames = %d, capacity %d", out.Frames(), capacity)
					}
					if out.Frames() < capacity-2 {
						t.Errorf("frames = %d, expected close to %d", out.Frames(), capacity-1)
					}
				})
			}
		}
	}
}

func TestConvertDownmixStereo(t *testing.T) {
	in := Buffer{
		Format: Format{SampleRate: 16000, Channels: 2, Encoding: Int16},
		Int16:  []int16{16384, -16384, 16384, 0, 0, 0},
	}
	out, err := Convert(in, DefaultFormat)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []float32{0, 0.25, 0}
	if len(out.Float32) != len(want) {
		t.Fatalf("got %d samples, want %d", len(out.Float32), len(want))
	}
	for i, w := range want {
		if out.Float32[i] != w {
			t.Errorf("sample %d = %v, want %v", i, out.Float32[i], w)
		}
	}
}

func TestConvertMonoToStereo(t *testing.T) {
	in := Buffer{Format: DefaultFormat, Float32: []float32{0.5, -0.25}}
	out, err := Convert(in, Format{SampleRate: 16000, Channels: 2, Encoding: Int16})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []int16{16384, 16384, -8192, -8192}
	for i, w := range want {
		if out.Int16[i] != w {
			t.Errorf("sample %d = %d, want %d", i, out.Int16[i], w)
		}
	}
}

func TestConvertClampsInt16(t *testing.T) {
	in := Buffer{Format: DefaultFormat, Float32: []float32{1.5, -1.5, 1, -1}}
	out, err := Convert(in, Format{SampleRate: 16000, Channels: 1, Encoding: Int16})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	want := []int16{math.MaxInt16, math.MinInt16, math.MaxInt16, math.MinInt16}
	for i, w := range want {
		if out.Int16[i] != w {
			t.Errorf("sample %d = %d, want %d", i, out.Int16[i], w)
		}
	}
}

func TestConvertSurroundToStereoFails(t *testing.T) {
	in := Buffer{Format: Format{SampleRate: 48000, Channels: 6, Encoding: Float32}, Float32: make([]float32, 12)}
	_, err := Convert(in, Format{SampleRate: 48000, Channels: 2, Encoding: Float32})
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}

	// Mono is always reachable.
	out, err := Convert(in, Format{SampleRate: 48000, Channels: 1, Encoding: Float32})
	if err != nil {
		t.Fatalf("downmix 6ch: %v", err)
	}
	if out.Frames() != 2 {
		t.Errorf("frames = %d, want 2", out.Frames())
	}
}

func TestConvertInvalidTarget(t *testing.T) {
	in := Tone(DefaultFormat, 440, 0.1)
	for _, to := range []Format{
		{SampleRate: 0, Channels: 1, Encoding: Float32},
		{SampleRate: 16000, Channels: 3, Encoding: Float32},
		{SampleRate: 16000, Channels: 1},
	} {
		_, err := Convert(in, to)
		var convErr *ConversionError
		if !errors.As(err, &convErr) {
			t.Errorf("Convert to %v: expected ConversionError, got %v", to, err)
		}
	}
}

func TestConvertAllocationLimit(t *testing.T) {
	n := &Normalizer{MaxFrames: 1000}
	in := Tone(Format{SampleRate: 8000, Channels: 1, Encoding: Float32}, 440, 1)
	_, err := n.Convert(in, DefaultFormat)
	var allocErr *AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("expected AllocationError, got %v", err)
	}
	if allocErr.Frames != 8000 || allocErr.From != 8000 || allocErr.To != 16000 {
		t.Errorf("unexpected error fields: %+v", allocErr)
	}
}

func TestConvertInvalidQuality(t *testing.T) {
	n := &Normalizer{Quality: 1000}
	in := Tone(Format{SampleRate: 8000, Channels: 1, Encoding: Float32}, 440, 0.1)
	_, err := n.Convert(in, DefaultFormat)
	var convErr *ConversionError
	if !errors.As(err, &convErr) {
		t.Fatalf("expected ConversionError, got %v", err)
	}
}

func TestConvertPreservesDuration(t *testing.T) {
	in := Tone(Format{SampleRate: 44100, Channels: 2, Encoding: Int16}, 440, 2)
	out, err := Convert(in, DefaultFormat)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if d := math.Abs(out.Seconds() - in.Seconds()); d > 2.0/16000 {
		t.Errorf("duration drifted by %vs (in %v, out %v)", d, in.Seconds(), out.Seconds())
	}
}
