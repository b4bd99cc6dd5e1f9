package audio

const (
	DefaultResampleQuality = 4
	// DefaultMaxFrames bounds a single output buffer at four hours of 48 kHz audio.
	DefaultMaxFrames = 48000 * 60 * 60 * 4
)

// Normalizer turns decodable audio into the exact sample format a
// recognizer requires.
type Normalizer struct {
	// Quality is the beep resampler quality, 1..64.
	Quality int
	// MaxFrames caps both the decoded source and the converted output, in
	// frames; zero disables the check.
	MaxFrames int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{Quality: DefaultResampleQuality, MaxFrames: DefaultMaxFrames}
}

func (n *Normalizer) quality() int {
	if n == nil || n.Quality == 0 {
		return DefaultResampleQuality
	}
	return n.Quality
}

func (n *Normalizer) maxFrames() int {
	if n == nil {
		return DefaultMaxFrames
	}
	return n.MaxFrames
}

// Normalize decodes path and converts it to target. It also returns the
// source format so callers can tell whether the fast path was taken.
func (n *Normalizer) Normalize(path string, target Format) (Buffer, Format, error) {
	if err := target.Validate(); err != nil {
		return Buffer{}, Format{}, &ConversionError{To: target, Err: err}
	}
	src, err := decodeFile(path, n.maxFrames())
	if err != nil {
		return Buffer{}, Format{}, err
	}
	if src.Format == target {
		return src, src.Format, nil
	}
	out, err := n.Convert(src, target)
	if err != nil {
		return Buffer{}, src.Format, err
	}
	return out, src.Format, nil
}

// NormalizeBuffer converts an already decoded buffer. A buffer already in
// the target format is copied without touching the samples.
func (n *Normalizer) NormalizeBuffer(in Buffer, target Format) (Buffer, error) {
	if in.Format == target {
		return in.clone(), nil
	}
	return n.Convert(in, target)
}

var defaultNormalizer = NewNormalizer()

// Convert converts in to the target format with default settings.
func Convert(in Buffer, to Format) (Buffer, error) {
	return defaultNormalizer.Convert(in, to)
}
