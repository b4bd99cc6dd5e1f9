package encoder

import (
	"bytes"
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"memoscribe/audio"
)

// FlacEncoder compresses interleaved 16-bit PCM one block at a time. It is
// not safe for concurrent use.
type FlacEncoder struct {
	buf         bytes.Buffer
	enc         *flac.Encoder
	format      audio.Format
	totalFrames uint64
}

// NewFlac starts a 16-bit FLAC stream for mono or stereo audio at f's rate.
func NewFlac(f audio.Format) (*FlacEncoder, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	e := &FlacEncoder{format: f}
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    uint32(f.SampleRate),
		NChannels:     uint8(f.Channels),
		BitsPerSample: BitsPerSample,
		NSamples:      0,
	}
	enc, err := flac.NewEncoder(&e.buf, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)
	e.enc = enc
	return e, nil
}

// EncodeBlock writes one frame. block holds interleaved samples and must not
// exceed BlockSize frames.
func (e *FlacEncoder) EncodeBlock(block []int16) error {
	channels := e.format.Channels
	if len(block)%channels != 0 {
		return fmt.Errorf("block of %d samples is not a whole number of %d-channel frames", len(block), channels)
	}
	n := len(block) / channels
	if n == 0 {
		return nil
	}
	if n > BlockSize {
		return fmt.Errorf("block of %d frames exceeds %d", n, BlockSize)
	}

	subframes := make([]*frame.Subframe, channels)
	for ch := range subframes {
		samples32 := make([]int32, n)
		for i := range samples32 {
			samples32[i] = int32(block[i*channels+ch])
		}
		subframes[ch] = &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  samples32,
			NSamples: n,
		}
	}

	layout := frame.ChannelsMono
	if channels == 2 {
		layout = frame.ChannelsLR
	}
	f := &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(n),
			SampleRate:    uint32(e.format.SampleRate),
			Channels:      layout,
			BitsPerSample: BitsPerSample,
		},
		Subframes: subframes,
	}

	if err := e.enc.WriteFrame(f); err != nil {
		return fmt.Errorf("writing flac frame: %w", err)
	}
	e.totalFrames += uint64(n)
	return nil
}

func (e *FlacEncoder) Close() error {
	return e.enc.Close()
}

func (e *FlacEncoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *FlacEncoder) TotalFrames() uint64 {
	return e.totalFrames
}
