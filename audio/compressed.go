package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
)

type beepDecodeFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decodeMP3 decodes through go-mp3, which always emits stereo; mono streams
// are recognized from their first frame header and kept mono.
func decodeMP3(data []byte, maxFrames int) (Buffer, error) {
	channels := 0
	if mp3Mono(data) {
		channels = 1
	}
	return decodeWithBeep(data, maxFrames, channels, mp3.Decode)
}

func decodeVorbis(data []byte, maxFrames int) (Buffer, error) {
	return decodeWithBeep(data, maxFrames, 0, vorbis.Decode)
}

// mp3Mono reports whether the first MPEG audio frame, after any ID3v2 tag,
// is in single channel mode.
func mp3Mono(data []byte) bool {
	if len(data) >= 10 && string(data[:3]) == "ID3" {
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		skip := 10 + size
		if data[5]&0x10 != 0 {
			skip += 10 // footer
		}
		if skip >= len(data) {
			return false
		}
		data = data[skip:]
	}
	for i := 0; i+3 < len(data); i++ {
		if data[i] == 0xFF && data[i+1]&0xE0 == 0xE0 {
			return data[i+3]>>6 == 3
		}
	}
	return false
}

// decodeWithBeep drains a beep decoder into a Float32 buffer. beep always
// yields two-channel frames; mono sources are kept mono. A non-zero channels
// overrides the count the decoder reports.
func decodeWithBeep(data []byte, maxFrames, channels int, decode beepDecodeFunc) (Buffer, error) {
	s, format, err := decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return Buffer{}, err
	}
	defer s.Close()

	if channels == 0 {
		channels = format.NumChannels
	}
	if channels < 1 || channels > 2 {
		return Buffer{}, fmt.Errorf("unsupported channel count %d", channels)
	}

	var out []float32
	if n := min(s.Len()*channels, len(data)); n > 0 {
		out = make([]float32, 0, n)
	}
	chunk := make([][2]float64, 4096)
	frames := 0
	for {
		n, ok := s.Stream(chunk)
		frames += n
		if maxFrames > 0 && frames > maxFrames {
			return Buffer{}, frameLimitError(frames, int(format.SampleRate), maxFrames)
		}
		for _, frame := range chunk[:n] {
			out = append(out, float32(frame[0]))
			if channels == 2 {
				out = append(out, float32(frame[1]))
			}
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := s.Err(); err != nil {
		return Buffer{}, err
	}

	return Buffer{
		Format:  Format{SampleRate: int(format.SampleRate), Channels: channels, Encoding: Float32},
		Float32: out,
	}, nil
}
