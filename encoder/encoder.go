package encoder

import (
	"fmt"

	"memoscribe/audio"
)

const (
	BitsPerSample = 16
	BlockSize     = 4096
)

// EncodeFLAC compresses a whole buffer. Float32 buffers are quantized to 16 bits
// first; rate and channel layout are kept.
func EncodeFLAC(buf audio.Buffer) ([]byte, error) {
	if buf.Format.Encoding != audio.Int16 {
		pcm := buf.Format
		pcm.Encoding = audio.Int16
		var err error
		if buf, err = audio.Convert(buf, pcm); err != nil {
			return nil, err
		}
	}

	enc, err := NewFlac(buf.Format)
	if err != nil {
		return nil, err
	}
	step := BlockSize * buf.Format.Channels
	for i := 0; i < len(buf.Int16); i += step {
		end := min(i+step, len(buf.Int16))
		if err := enc.EncodeBlock(buf.Int16[i:end]); err != nil {
			return nil, fmt.Errorf("encoding block at sample %d: %w", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing flac stream: %w", err)
	}
	return enc.Bytes(), nil
}
