package transcriber

import "fmt"

// EngineUnavailableError reports a failed engine initialization. Failures are
// not remembered; the next call tries again.
type EngineUnavailableError struct {
	Engine string
	Err    error
}

func (e *EngineUnavailableError) Error() string {
	return fmt.Sprintf("%s engine unavailable: %v", e.Engine, e.Err)
}

func (e *EngineUnavailableError) Unwrap() error { return e.Err }

// TranscriptionError reports a recognition failure on an initialized engine.
type TranscriptionError struct {
	Engine string
	Err    error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("%s transcription failed: %v", e.Engine, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
