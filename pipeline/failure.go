package pipeline

import (
	"context"
	"errors"

	"memoscribe/audio"
	"memoscribe/transcriber"
)

// FailureText renders err as the message stored in place of a transcript.
func FailureText(err error) string {
	if err == nil {
		return ""
	}

	var (
		decodeErr     *audio.DecodeError
		allocErr      *audio.AllocationError
		convErr       *audio.ConversionError
		unavailable   *transcriber.EngineUnavailableError
		recognizerErr *transcriber.TranscriptionError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "Transcription cancelled."
	case errors.Is(err, context.DeadlineExceeded):
		return "Transcription timed out."
	case errors.As(err, &decodeErr):
		return "Transcription failed: the recording could not be read."
	case errors.As(err, &allocErr):
		return "Transcription failed: the recording is too long to process."
	case errors.As(err, &convErr):
		return "Transcription failed: the recording could not be converted for the speech engine."
	case errors.As(err, &unavailable):
		return "Transcription failed: the " + unavailable.Engine + " speech engine is unavailable."
	case errors.As(err, &recognizerErr):
		return "Transcription failed: the " + recognizerErr.Engine + " speech engine could not recognize this recording."
	default:
		return "Transcription failed: " + err.Error()
	}
}
