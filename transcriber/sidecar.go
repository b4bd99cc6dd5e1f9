package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"memoscribe/align"
	"memoscribe/audio"
	"memoscribe/encoder"
)

const (
	SidecarName = "sidecar"

	DefaultSidecarURL     = "http://localhost:8387"
	DefaultSidecarModel   = "base"
	DefaultSidecarTimeout = 120 * time.Second
)

type SidecarConfig struct {
	URL      string
	Model    string
	Language string
	Timeout  time.Duration
	// Format is what buffers are normalized to before upload.
	Format audio.Format
}

// Sidecar is a speech service reached over HTTP. Audio is uploaded as FLAC.
type Sidecar struct {
	cfg    SidecarConfig
	client *TracedClient
}

func NewSidecar(cfg SidecarConfig) *Sidecar {
	if cfg.URL == "" {
		cfg.URL = DefaultSidecarURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultSidecarModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultSidecarTimeout
	}
	if cfg.Format == (audio.Format{}) {
		cfg.Format = audio.Format{SampleRate: audio.DefaultSampleRate, Channels: 1, Encoding: audio.Int16}
	}
	return &Sidecar{cfg: cfg, client: NewTracedClient(cfg.Timeout)}
}

func (s *Sidecar) Name() string { return SidecarName }

func (s *Sidecar) Capabilities() Capabilities {
	return Capabilities{Format: s.cfg.Format, TokenTimings: true, ReportsProcessing: true}
}

type sidecarHealth struct {
	Status           string  `json:"status"`
	ModelLoadSeconds float64 `json:"model_load_seconds"`
}

// Initialize checks GET /health. The service may report how long its model
// took to load.
func (s *Sidecar) Initialize(ctx context.Context) (InitStats, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"/health", nil)
	if err != nil {
		return InitStats{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return InitStats{}, fmt.Errorf("sidecar health check: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return InitStats{}, fmt.Errorf("sidecar health check: status %d: %s", resp.StatusCode, string(resp.Body))
	}

	var health sidecarHealth
	if len(bytes.TrimSpace(resp.Body)) > 0 {
		// Plain-text health bodies are fine too.
		_ = json.Unmarshal(resp.Body, &health)
	}
	return InitStats{
		ModelLoad: time.Duration(health.ModelLoadSeconds * float64(time.Second)),
		Init:      time.Since(start),
	}, nil
}

type sidecarResponse struct {
	Text           string              `json:"text"`
	Duration       float64             `json:"duration"`
	ProcessingTime float64             `json:"processing_time"`
	Language       string              `json:"language"`
	Tokens         []align.TokenTiming `json:"tokens"`
}

func (s *Sidecar) Transcribe(ctx context.Context, buf audio.Buffer) (*Result, error) {
	encStart := time.Now()
	audioData, err := encoder.EncodeFLAC(buf)
	if err != nil {
		return nil, fmt.Errorf("encode flac: %w", err)
	}
	encodeTime := time.Since(encStart)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "audio.flac")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	_ = writer.WriteField("model", s.cfg.Model)
	_ = writer.WriteField("sample_rate", strconv.Itoa(buf.Format.SampleRate))
	if s.cfg.Language != "" {
		_ = writer.WriteField("language", s.cfg.Language)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sidecar request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sidecar error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(resp.Body)))
	}

	var sResp sidecarResponse
	if err := json.Unmarshal(resp.Body, &sResp); err != nil {
		return nil, fmt.Errorf("sidecar response parse error: %w", err)
	}

	duration := sResp.Duration
	if duration <= 0 {
		duration = buf.Seconds()
	}
	rawSize := float64(buf.Samples() * 2)
	return &Result{
		Text:              strings.TrimSpace(sResp.Text),
		Tokens:            sResp.Tokens,
		DurationSeconds:   duration,
		ProcessingSeconds: sResp.ProcessingTime,
		Network:           resp.Metrics,
		Upload: &UploadStats{
			RawKB:          rawSize / 1024,
			CompressedKB:   float64(len(audioData)) / 1024,
			CompressionPct: compressionPct(rawSize, float64(len(audioData))),
			EncodeTime:     encodeTime,
		},
		RequestID: firstNonEmpty(resp.Header, "X-Request-Id", "X-Correlation-Id"),
	}, nil
}

func compressionPct(raw, encoded float64) float64 {
	if raw <= 0 {
		return 0
	}
	return (1.0 - encoded/raw) * 100
}
