package audio

import (
	"math"
	"time"
)

const (
	speechWindow = 100 * time.Millisecond
	// speechLevel is the RMS a window needs to count as voiced.
	speechLevel = 0.01
	// SpeechMinRatio is the voiced fraction below which a memo counts as silent.
	SpeechMinRatio = 0.10
)

// SpeechRatio splits buf into 100 ms windows and returns the fraction whose
// RMS level reaches a speaking voice. An empty buffer has ratio 0.
func SpeechRatio(buf Buffer) float64 {
	frames := buf.Frames()
	if frames == 0 || buf.Format.SampleRate <= 0 {
		return 0
	}
	window := max(int(speechWindow.Seconds()*float64(buf.Format.SampleRate)), 1)
	ch := buf.Format.Channels

	windows, voiced := 0, 0
	for start := 0; start < frames; start += window {
		end := min(start+window, frames)
		var sum float64
		for i := start * ch; i < end*ch; i++ {
			v := buf.at(i)
			sum += v * v
		}
		if math.Sqrt(sum/float64((end-start)*ch)) >= speechLevel {
			voiced++
		}
		windows++
	}
	return float64(voiced) / float64(windows)
}

// HasSpeech reports whether enough of buf is voiced to be worth transcribing.
func HasSpeech(buf Buffer) bool {
	return SpeechRatio(buf) >= SpeechMinRatio
}
