package memo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"memoscribe/align"
	"memoscribe/pipeline"
	"memoscribe/telemetry"
)

// SchemaVersion is written into every encoded Record. Decode refuses any
// other version rather than guessing at field meanings.
const SchemaVersion = 1

var ErrUnknownVersion = errors.New("unknown memo schema version")

// Record is a persisted voice memo and its latest transcription. A failed
// attempt stores its failure message as the transcript.
type Record struct {
	Version   int       `json:"version"`
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	AudioPath string    `json:"audio_path"`
	CreatedAt time.Time `json:"created_at"`

	Transcript    string                    `json:"transcript"`
	Failed        bool                      `json:"failed,omitempty"`
	Sentences     []align.SentenceTimestamp `json:"sentences,omitempty"`
	Stats         *telemetry.Stats          `json:"stats,omitempty"`
	TranscribedAt time.Time                 `json:"transcribed_at,omitzero"`
}

func New(audioPath string) *Record {
	return &Record{
		Version:   SchemaVersion,
		ID:        uuid.New(),
		Title:     strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)),
		AudioPath: audioPath,
		CreatedAt: time.Now().UTC(),
	}
}

// Apply replaces the previous transcription with out. Earlier stats are
// dropped, not merged.
func (r *Record) Apply(out *pipeline.Output) {
	stats := out.Stats
	r.Transcript = out.TranscriptText
	r.Failed = false
	r.Sentences = out.SentenceTimestamps
	r.Stats = &stats
	r.TranscribedAt = time.Now().UTC()
}

// ApplyFailure stores err's human-readable message in place of the transcript
// and clears everything the failed attempt superseded.
func (r *Record) ApplyFailure(err error) {
	r.Transcript = pipeline.FailureText(err)
	r.Failed = true
	r.Sentences = nil
	r.Stats = nil
	r.TranscribedAt = time.Now().UTC()
}

func Encode(w io.Writer, r *Record) error {
	if r.Version != SchemaVersion {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, r.Version)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func Decode(data []byte) (*Record, error) {
	var header struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decoding memo: %w", err)
	}
	if header.Version == nil {
		return nil, fmt.Errorf("%w: missing", ErrUnknownVersion)
	}
	if *header.Version != SchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, *header.Version)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding memo: %w", err)
	}
	if r.ID == uuid.Nil {
		return nil, errors.New("decoding memo: missing id")
	}
	return &r, nil
}
