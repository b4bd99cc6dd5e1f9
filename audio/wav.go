package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const WAVHeaderSize = 44

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

type wavFmt struct {
	format        uint16
	channels      uint16
	sampleRate    uint32
	blockAlign    uint16
	bitsPerSample uint16
}

// decodeWAV walks the RIFF chunks and returns samples in their native encoding:
// 16-bit PCM stays Int16, everything else becomes Float32.
func decodeWAV(data []byte) (Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Buffer{}, errors.New("not a RIFF/WAVE file")
	}

	var (
		fmtChunk *wavFmt
		pcm      []byte
	)
	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if end > len(data) || end < body {
			// Truncated data chunks are common in recordings cut short.
			if id == "data" {
				end = len(data)
			} else {
				return Buffer{}, fmt.Errorf("chunk %q overruns file", id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return Buffer{}, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			c := data[body:end]
			f := &wavFmt{
				format:        binary.LittleEndian.Uint16(c[0:2]),
				channels:      binary.LittleEndian.Uint16(c[2:4]),
				sampleRate:    binary.LittleEndian.Uint32(c[4:8]),
				blockAlign:    binary.LittleEndian.Uint16(c[12:14]),
				bitsPerSample: binary.LittleEndian.Uint16(c[14:16]),
			}
			if f.format == wavFormatExtensible {
				if size < 26 {
					return Buffer{}, errors.New("extensible fmt chunk too short")
				}
				f.format = binary.LittleEndian.Uint16(c[24:26])
			}
			fmtChunk = f
		case "data":
			pcm = data[body:end]
		}

		// Chunks are word aligned.
		pos = end + size%2
	}

	if fmtChunk == nil {
		return Buffer{}, errors.New("missing fmt chunk")
	}
	if pcm == nil {
		return Buffer{}, errors.New("missing data chunk")
	}
	if fmtChunk.channels == 0 || fmtChunk.sampleRate == 0 {
		return Buffer{}, fmt.Errorf("invalid fmt: %d channels at %d Hz", fmtChunk.channels, fmtChunk.sampleRate)
	}
	return wavSamples(fmtChunk, pcm)
}

func wavSamples(f *wavFmt, pcm []byte) (Buffer, error) {
	bytesPer := int(f.bitsPerSample) / 8
	if bytesPer == 0 {
		return Buffer{}, fmt.Errorf("unsupported bit depth %d", f.bitsPerSample)
	}
	n := len(pcm) / bytesPer
	n -= n % int(f.channels)
	format := Format{SampleRate: int(f.sampleRate), Channels: int(f.channels), Encoding: Float32}

	switch {
	case f.format == wavFormatPCM && f.bitsPerSample == 16:
		format.Encoding = Int16
		out := make([]int16, n)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		}
		return Buffer{Format: format, Int16: out}, nil

	case f.format == wavFormatPCM && f.bitsPerSample == 8:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(int(pcm[i])-128) / 128
		}
		return Buffer{Format: format, Float32: out}, nil

	case f.format == wavFormatPCM && f.bitsPerSample == 24:
		out := make([]float32, n)
		for i := range out {
			b := pcm[i*3:]
			v := int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
			out[i] = float32(v) / (1 << 23)
		}
		return Buffer{Format: format, Float32: out}, nil

	case f.format == wavFormatPCM && f.bitsPerSample == 32:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(float64(int32(binary.LittleEndian.Uint32(pcm[i*4:]))) / (1 << 31))
		}
		return Buffer{Format: format, Float32: out}, nil

	case f.format == wavFormatFloat && f.bitsPerSample == 32:
		out := make([]float32, n)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(pcm[i*4:]))
		}
		return Buffer{Format: format, Float32: out}, nil

	case f.format == wavFormatFloat && f.bitsPerSample == 64:
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(pcm[i*8:])))
		}
		return Buffer{Format: format, Float32: out}, nil
	}

	return Buffer{}, fmt.Errorf("unsupported WAV encoding (format %d, %d bits)", f.format, f.bitsPerSample)
}

// WriteWAV writes buf as a canonical 44-byte-header WAV: 16-bit PCM for Int16
// buffers, IEEE float for Float32 buffers.
func WriteWAV(w io.Writer, buf Buffer) error {
	if err := buf.Format.Validate(); err != nil {
		return err
	}

	var (
		format   uint16 = wavFormatFloat
		bits     uint16 = 32
		dataSize        = buf.Samples() * 4
	)
	if buf.Format.Encoding == Int16 {
		format, bits, dataSize = wavFormatPCM, 16, buf.Samples()*2
	}
	blockAlign := uint16(buf.Format.Channels) * bits / 8

	hdr := make([]byte, WAVHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(WAVHeaderSize-8+dataSize))
	copy(hdr[8:12], "WAVE")
	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], format)
	binary.LittleEndian.PutUint16(hdr[22:24], uint16(buf.Format.Channels))
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(buf.Format.SampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(buf.Format.SampleRate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bits)
	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], uint32(dataSize))

	var body bytes.Buffer
	body.Grow(WAVHeaderSize + dataSize)
	body.Write(hdr)
	if buf.Format.Encoding == Int16 {
		if err := binary.Write(&body, binary.LittleEndian, buf.Int16); err != nil {
			return err
		}
	} else {
		if err := binary.Write(&body, binary.LittleEndian, buf.Float32); err != nil {
			return err
		}
	}
	_, err := w.Write(body.Bytes())
	return err
}
