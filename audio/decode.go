package audio

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// Container identifies a supported audio file type.
type Container string

const (
	ContainerWAV    Container = "wav"
	ContainerFLAC   Container = "flac"
	ContainerMP3    Container = "mp3"
	ContainerVorbis Container = "ogg"
)

var errUnknownContainer = errors.New("unrecognized audio container")

// Sniff identifies the container from its leading bytes.
func Sniff(data []byte) (Container, error) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ContainerWAV, nil
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ContainerFLAC, nil
	case bytes.HasPrefix(data, []byte("OggS")):
		return ContainerVorbis, nil
	case bytes.HasPrefix(data, []byte("ID3")):
		return ContainerMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ContainerMP3, nil
	}
	return "", errUnknownContainer
}

// Decode reads an audio file and returns its samples in the source format.
// Streams longer than DefaultMaxFrames fail with *AllocationError.
func Decode(path string) (Buffer, error) {
	return decodeFile(path, DefaultMaxFrames)
}

func decodeFile(path string, maxFrames int) (Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Buffer{}, &DecodeError{Path: path, Err: err}
	}
	buf, err := decodeBytes(data, maxFrames)
	if err != nil {
		var allocErr *AllocationError
		if errors.As(err, &allocErr) {
			return Buffer{}, allocErr
		}
		return Buffer{}, &DecodeError{Path: path, Err: err}
	}
	return buf, nil
}

// DecodeBytes decodes an in-memory audio file.
func DecodeBytes(data []byte) (Buffer, error) {
	return decodeBytes(data, DefaultMaxFrames)
}

// decodeBytes decodes data, refusing streams of more than maxFrames frames
// (zero disables the limit).
func decodeBytes(data []byte, maxFrames int) (Buffer, error) {
	c, err := Sniff(data)
	if err != nil {
		return Buffer{}, err
	}

	var buf Buffer
	switch c {
	case ContainerWAV:
		buf, err = decodeWAV(data)
	case ContainerFLAC:
		buf, err = decodeFLAC(data, maxFrames)
	case ContainerMP3:
		buf, err = decodeMP3(data, maxFrames)
	case ContainerVorbis:
		buf, err = decodeVorbis(data, maxFrames)
	}
	var allocErr *AllocationError
	if errors.As(err, &allocErr) {
		return Buffer{}, allocErr
	}
	if err != nil {
		return Buffer{}, fmt.Errorf("%s: %w", c, err)
	}
	// Sources may carry more than two channels; Convert downmixes them.
	if buf.Format.SampleRate <= 0 || buf.Format.Channels < 1 {
		return Buffer{}, fmt.Errorf("%s: invalid stream format %s", c, buf.Format)
	}
	if maxFrames > 0 && buf.Frames() > maxFrames {
		return Buffer{}, frameLimitError(buf.Frames(), buf.Format.SampleRate, maxFrames)
	}
	return buf, nil
}

// frameLimitError reports a decoded stream longer than the frame limit.
func frameLimitError(frames, rate, limit int) error {
	return &AllocationError{Frames: frames, From: rate, To: rate,
		Err: fmt.Errorf("%d frames exceeds limit of %d", frames, limit)}
}
