package audio

import "math"

// Tone synthesizes a sine wave in format f. It stands in for recorded audio
// in tests and dry runs.
func Tone(f Format, hz float64, seconds float64) Buffer {
	frames := int(math.Round(seconds * float64(f.SampleRate)))
	out := Buffer{Format: f}
	total := frames * f.Channels
	if f.Encoding == Int16 {
		out.Int16 = make([]int16, total)
	} else {
		out.Float32 = make([]float32, total)
	}
	for i := 0; i < frames; i++ {
		v := 0.5 * math.Sin(2*math.Pi*hz*float64(i)/float64(f.SampleRate))
		for ch := 0; ch < f.Channels; ch++ {
			if f.Encoding == Int16 {
				out.Int16[i*f.Channels+ch] = toInt16(v)
			} else {
				out.Float32[i*f.Channels+ch] = float32(v)
			}
		}
	}
	return out
}

// Silence returns seconds of digital silence in format f.
func Silence(f Format, seconds float64) Buffer {
	return Tone(f, 0, seconds)
}
