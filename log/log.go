package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const EnvLogPath = "MEMOSCRIBE_LOG_PATH"

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

// Metrics mirrors the stats of one transcription for the diagnostics log.
type Metrics struct {
	AudioS        float64
	ModelLoadS    float64
	InitS         float64
	ProcessingS   float64
	WallS         float64
	RTF           float64
	Tokens        int
	TokensPerS    float64
	CPUUserS      float64
	CPUSystemS    float64
	RSSBeforeMB   float64
	RSSAfterMB    float64
	RSSDeltaMB    float64
	HeapDeltaMB   float64
	SentenceCount int
}

// NetworkMetrics are the request phases of an engine reached over HTTP.
type NetworkMetrics struct {
	DNSTimeMs    float64
	TCPTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	DownloadMs   float64
	TotalTimeMs  float64
	EncodeTimeMs float64
	CompressedKB float64
	ConnReused   bool
	TLSProto     string
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		if !filepath.IsAbs(flagPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, flagPath), nil
		}
		return flagPath, nil
	}

	// Priority 2: MEMOSCRIBE_LOG_PATH environment variable
	envPath := os.Getenv(EnvLogPath)
	if envPath != "" {
		if !filepath.IsAbs(envPath) {
			wd, err := os.Getwd()
			if err != nil {
				return "", err
			}
			return filepath.Join(wd, envPath), nil
		}
		return envPath, nil
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Transcription(m Metrics, engine, memo string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().Str("engine", engine)
	if memo != "" {
		ev = ev.Str("memo", memo)
	}
	ev.Float64("audio_s", m.AudioS).
		Float64("model_load_s", m.ModelLoadS).
		Float64("init_s", m.InitS).
		Float64("processing_s", m.ProcessingS).
		Float64("wall_s", m.WallS).
		Float64("rtf", m.RTF).
		Int("tokens", m.Tokens).
		Float64("tokens_per_s", m.TokensPerS).
		Float64("cpu_user_s", m.CPUUserS).
		Float64("cpu_sys_s", m.CPUSystemS).
		Float64("rss_before_mb", m.RSSBeforeMB).
		Float64("rss_after_mb", m.RSSAfterMB).
		Float64("rss_delta_mb", m.RSSDeltaMB).
		Float64("heap_delta_mb", m.HeapDeltaMB).
		Int("sentences", m.SentenceCount).
		Msg("transcription")
}

func Network(m NetworkMetrics, engine string) {
	if !logReady {
		return
	}

	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}

	ev := diagLog.Info().
		Str("engine", engine).
		Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Float64("encode_ms", m.EncodeTimeMs).
		Float64("compressed_kb", m.CompressedKB).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tcp_ms", m.TCPTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("download_ms", m.DownloadMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("network")
}

func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	transcribeFile.WriteString(line)
}

func EngineInit(engine string, modelLoadS, initS float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("engine", engine).
		Float64("model_load_s", modelLoadS).
		Float64("init_s", initS).
		Msg("engine_init")
}

func Normalize(path, source, target string, fastPath bool, ms float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("path", path).
		Str("source", source).
		Str("target", target).
		Bool("fast_path", fastPath).
		Float64("ms", ms).
		Msg("normalize")
}

// Failure records an aborted transcription and the stage that failed.
func Failure(stage, memo string, err error) {
	if !logReady {
		return
	}
	ev := diagLog.Error().Str("stage", stage)
	if memo != "" {
		ev = ev.Str("memo", memo)
	}
	ev.Err(err).Msg("transcription_failed")
}

func SessionStart(engine, format string, files int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("engine", engine).
		Str("format", format).
		Int("files", files).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}
