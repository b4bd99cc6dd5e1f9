package audio

import (
	"errors"
	"fmt"
	"math"

	"github.com/gopxl/beep"
)

var (
	errCapacityOverflow = errors.New("frame count overflows output capacity")
	errCapacityExceeded = errors.New("converter produced more frames than reserved")
)

// Capacity is the number of output frames reserved when converting frames
// samples from rate from to rate to: ceil(frames*to/from) + 1. The extra
// frame absorbs rounding in the converter.
func Capacity(frames, from, to int) (int, error) {
	if frames < 0 || from <= 0 || to <= 0 {
		return 0, fmt.Errorf("invalid capacity request: %d frames, %d Hz -> %d Hz", frames, from, to)
	}
	if frames > (math.MaxInt-from)/to {
		return 0, errCapacityOverflow
	}
	return (frames*to+from-1)/from + 1, nil
}

// frameStreamer feeds one materialized buffer to beep.
type frameStreamer struct {
	frames [][2]float64
	pos    int
}

func (s *frameStreamer) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= len(s.frames) {
		return 0, false
	}
	n := copy(samples, s.frames[s.pos:])
	s.pos += n
	return n, true
}

func (s *frameStreamer) Err() error { return nil }

// Convert runs a single-shot conversion of in to the target format.
func (n *Normalizer) Convert(in Buffer, to Format) (Buffer, error) {
	from := in.Format
	if err := to.Validate(); err != nil {
		return Buffer{}, &ConversionError{From: from, To: to, Err: err}
	}
	if from.SampleRate <= 0 || from.Channels < 1 {
		return Buffer{}, &ConversionError{From: from, To: to, Err: fmt.Errorf("invalid source format")}
	}

	frames, err := mix(in, to.Channels)
	if err != nil {
		return Buffer{}, &ConversionError{From: from, To: to, Err: err}
	}

	if from.SampleRate != to.SampleRate {
		capacity, err := Capacity(len(frames), from.SampleRate, to.SampleRate)
		if err == nil && n.maxFrames() > 0 && capacity > n.maxFrames() {
			err = fmt.Errorf("%d frames exceeds limit of %d", capacity, n.maxFrames())
		}
		if err != nil {
			return Buffer{}, &AllocationError{Frames: len(frames), From: from.SampleRate, To: to.SampleRate, Err: err}
		}
		frames, err = n.resample(frames, from.SampleRate, to.SampleRate, capacity)
		if err != nil {
			return Buffer{}, &ConversionError{From: from, To: to, Err: err}
		}
	}

	return encode(frames, to), nil
}

// mix folds the interleaved source into beep frames carrying the target
// channel layout. Mono targets average every source channel.
func mix(in Buffer, channels int) ([][2]float64, error) {
	src := in.Format.Channels
	if channels == 2 && src > 2 {
		return nil, fmt.Errorf("cannot map %d channels to stereo", src)
	}

	nframes := in.Frames()
	out := make([][2]float64, nframes)
	for i := range out {
		base := i * src
		switch {
		case channels == 1:
			var sum float64
			for ch := 0; ch < src; ch++ {
				sum += in.at(base + ch)
			}
			v := sum / float64(src)
			out[i] = [2]float64{v, v}
		case src == 1:
			v := in.at(base)
			out[i] = [2]float64{v, v}
		default:
			out[i] = [2]float64{in.at(base), in.at(base + 1)}
		}
	}
	return out, nil
}

func (n *Normalizer) resample(frames [][2]float64, from, to, capacity int) (out [][2]float64, err error) {
	defer func() {
		// beep panics on invalid quality or ratio.
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("resampler: %v", r)
		}
	}()

	rs := beep.Resample(n.quality(), beep.SampleRate(from), beep.SampleRate(to), &frameStreamer{frames: frames})

	out = make([][2]float64, capacity)
	written := 0
	drained := false
	for written < len(out) {
		k, ok := rs.Stream(out[written:])
		written += k
		if !ok || k == 0 {
			drained = true
			break
		}
	}
	if !drained {
		var extra [1][2]float64
		if k, _ := rs.Stream(extra[:]); k > 0 {
			return nil, errCapacityExceeded
		}
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return out[:written], nil
}

func encode(frames [][2]float64, to Format) Buffer {
	out := Buffer{Format: to}
	total := len(frames) * to.Channels
	if to.Encoding == Int16 {
		out.Int16 = make([]int16, 0, total)
	} else {
		out.Float32 = make([]float32, 0, total)
	}
	for _, f := range frames {
		for ch := 0; ch < to.Channels; ch++ {
			if to.Encoding == Int16 {
				out.Int16 = append(out.Int16, toInt16(f[ch]))
			} else {
				out.Float32 = append(out.Float32, float32(f[ch]))
			}
		}
	}
	return out
}

func toInt16(v float64) int16 {
	s := math.Round(v * 32768)
	if s > math.MaxInt16 {
		return math.MaxInt16
	}
	if s < math.MinInt16 {
		return math.MinInt16
	}
	return int16(s)
}
