package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"memoscribe/audio"
	"memoscribe/clipboard"
	"memoscribe/config"
	"memoscribe/doctor"
	"memoscribe/log"
	"memoscribe/memo"
	"memoscribe/pipeline"
	"memoscribe/shutdown"
	"memoscribe/telemetry"
	"memoscribe/transcriber"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("memoscribe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFlag := fs.String("config", "", "YAML config file (default: ./memoscribe.yml if present)")
	engineFlag := fs.String("engine", "", "Recognition engine (overrides config)")
	langFlag := fs.String("lang", "", "Language code for transcription (e.g., en, es, fr)")
	runsFlag := fs.Int("runs", 1, "Transcribe every file this many times and summarize timings")
	workersFlag := fs.Int("workers", 1, "Memos transcribed in parallel")
	copyFlag := fs.Bool("copy", false, "Copy the last transcript to the clipboard")
	dumpFlag := fs.String("dump", "", "Write the normalized audio of each memo as WAV into this directory")
	jsonFlag := fs.Bool("json", false, "Print memo records as JSON")
	logPathFlag := fs.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	doctorFlag := fs.Bool("doctor", false, "Run system diagnostics and exit")
	versionFlag := fs.Bool("version", false, "Print version and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: memoscribe [flags] <audio-file>...\n\nFlags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *versionFlag {
		fmt.Fprintf(stdout, "memoscribe %s\n", version)
		return 0
	}

	var loadOpts []config.Option
	if *configFlag != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(*configFlag))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *engineFlag != "" {
		cfg.Engine = *engineFlag
	}
	if *langFlag != "" {
		cfg.Language = *langFlag
	}

	logFlag := *logPathFlag
	if logFlag == "" {
		logFlag = cfg.Log.Path
	}
	logPath, err := log.ResolveDir(logFlag)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
		crashFile.Close()
	}

	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	var metrics *telemetry.Metrics
	if cfg.Metrics.Endpoint != "" {
		mp, err := telemetry.InitMeter(ctx, cfg.MeterConfig(version))
		if err != nil {
			fmt.Fprintf(stderr, "Warning: metrics disabled: %v\n", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := mp.Shutdown(flushCtx); err != nil {
					log.Warnf("metrics flush: %v", err)
				}
			}()
			if metrics, err = telemetry.NewMetrics(telemetry.Meter()); err != nil {
				log.Warnf("metrics instruments: %v", err)
			}
		}
	}

	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	engine, err := transcriber.New(cfg.Engine, engineOpts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	handle := transcriber.NewHandle(engine)

	if *doctorFlag {
		sample := ""
		if fs.NArg() > 0 {
			sample = fs.Arg(0)
		}
		return doctor.Run(ctx, doctor.Options{
			Out:        stdout,
			Handle:     handle,
			Normalizer: cfg.Normalizer(),
			LogDir:     log.Dir(),
			SamplePath: sample,
			Clipboard:  *copyFlag,
		})
	}

	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return 2
	}
	if *dumpFlag != "" {
		if err := os.MkdirAll(*dumpFlag, 0o755); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	p := pipeline.New(handle, cfg.Normalizer(), telemetry.NewCollector(metrics))
	sched := memo.NewScheduler(p)
	rep := newReporter(stdout, *jsonFlag)

	log.SessionStart(handle.Name(), handle.Format().String(), len(files))

	var (
		samples  []telemetry.Stats
		lastText string
		failed   bool
		count    int
	)
	records := make([]*memo.Record, len(files))
	for i, f := range files {
		records[i] = memo.New(f)
	}
	runs := max(*runsFlag, 1)
	for pass := 1; pass <= runs; pass++ {
		if ctx.Err() != nil {
			break
		}
		p.KeepAudio = *dumpFlag != "" && pass == 1
		outcomes := sched.TranscribeAll(ctx, records, *workersFlag)
		for i, oc := range outcomes {
			rec := records[i]
			count++
			if err := rep.memo(rec, oc, pass, runs); err != nil {
				fmt.Fprintf(stderr, "Error: %v\n", err)
			}
			if oc.Err != nil {
				failed = true
				continue
			}
			samples = append(samples, oc.Output.Stats)
			lastText = oc.Output.TranscriptText
			if *dumpFlag != "" && pass == 1 {
				if err := dumpWAV(*dumpFlag, rec, oc.Output.Audio); err != nil {
					fmt.Fprintf(stderr, "Warning: %v\n", err)
				}
			}
		}
	}
	if runs > 1 || len(files) > 1 {
		rep.summary(samples)
	}

	if *copyFlag {
		switch err := clipboard.Copy(lastText); {
		case err == nil:
			rep.copied()
		case errors.Is(err, clipboard.ErrEmpty):
		default:
			fmt.Fprintf(stderr, "Warning: clipboard: %v\n", err)
		}
	}

	log.SessionEnd(count)
	if failed {
		return 1
	}
	return 0
}

func dumpWAV(dir string, rec *memo.Record, buf audio.Buffer) error {
	path := filepath.Join(dir, rec.Title+".normalized.wav")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dump %s: %w", path, err)
	}
	defer f.Close()
	if err := audio.WriteWAV(f, buf); err != nil {
		return fmt.Errorf("dump %s: %w", path, err)
	}
	return nil
}
