package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/mewkiz/flac"
)

func decodeFLAC(data []byte, maxFrames int) (Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return Buffer{}, fmt.Errorf("parsing flac header: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bits := int(info.BitsPerSample)
	if channels == 0 || info.SampleRate == 0 {
		return Buffer{}, fmt.Errorf("invalid flac stream: %d channels at %d Hz", channels, info.SampleRate)
	}
	if bits < 4 || bits > 32 {
		return Buffer{}, fmt.Errorf("unsupported flac bit depth %d", bits)
	}

	format := Format{SampleRate: int(info.SampleRate), Channels: channels, Encoding: Float32}
	if bits == 16 {
		format.Encoding = Int16
	}

	if maxFrames > 0 && info.NSamples > uint64(maxFrames) {
		return Buffer{}, frameLimitError(int(min(info.NSamples, math.MaxInt32)), format.SampleRate, maxFrames)
	}

	var (
		i16   []int16
		f32   []float32
		scale = float32(int64(1) << (bits - 1))
	)
	// STREAMINFO is untrusted; never reserve more samples than there are
	// bytes in the file.
	if hint := int(min(info.NSamples*uint64(channels), uint64(len(data)))); hint > 0 {
		if format.Encoding == Int16 {
			i16 = make([]int16, 0, hint)
		} else {
			f32 = make([]float32, 0, hint)
		}
	}

	frames := 0
	for {
		f, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Buffer{}, fmt.Errorf("parsing flac frame: %w", err)
		}
		if len(f.Subframes) != channels {
			return Buffer{}, fmt.Errorf("flac frame has %d subframes, want %d", len(f.Subframes), channels)
		}
		n := f.Subframes[0].NSamples
		frames += n
		if maxFrames > 0 && frames > maxFrames {
			return Buffer{}, frameLimitError(frames, format.SampleRate, maxFrames)
		}
		for i := 0; i < n; i++ {
			for ch := 0; ch < channels; ch++ {
				s := f.Subframes[ch].Samples[i]
				if format.Encoding == Int16 {
					i16 = append(i16, int16(s))
				} else {
					f32 = append(f32, float32(s)/scale)
				}
			}
		}
	}

	return Buffer{Format: format, Int16: i16, Float32: f32}, nil
}
