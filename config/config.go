package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"memoscribe/audio"
	"memoscribe/telemetry"
	"memoscribe/transcriber"
)

// EnvPrefix prefixes every environment override, e.g. MEMOSCRIBE_SIDECAR_URL.
const EnvPrefix = "MEMOSCRIBE"

// DefaultFiles are searched in order when no config file is given.
var DefaultFiles = []string{"./memoscribe.yml", "./memoscribe.yaml"}

type Config struct {
	Engine   string  `mapstructure:"engine" validate:"required"`
	Language string  `mapstructure:"language"`
	Audio    Audio   `mapstructure:"audio"`
	Sidecar  Sidecar `mapstructure:"sidecar"`
	Fake     Fake    `mapstructure:"fake"`
	Log      Log     `mapstructure:"log"`
	Metrics  Metrics `mapstructure:"metrics"`
}

// Audio overrides the engine's sample format. Zero fields keep the engine's
// own choice.
type Audio struct {
	SampleRate      int    `mapstructure:"sample_rate" validate:"gte=0,lte=384000"`
	Channels        int    `mapstructure:"channels" validate:"gte=0,lte=2"`
	Encoding        string `mapstructure:"encoding" validate:"omitempty,oneof=f32 float32 float s16 int16 pcm16"`
	ResampleQuality int    `mapstructure:"resample_quality" validate:"gte=1,lte=64"`
	MaxFrames       int    `mapstructure:"max_frames" validate:"gte=0"`
}

type Sidecar struct {
	URL     string        `mapstructure:"url" validate:"omitempty,url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0s"`
}

type Fake struct {
	Text string `mapstructure:"text"`
}

type Log struct {
	Path string `mapstructure:"path"`
}

// Metrics enables the OTLP exporter when Endpoint is set.
type Metrics struct {
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool          `mapstructure:"insecure"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=0s"`
}

type loadOptions struct {
	configFile string
	envFile    string
}

type Option func(*loadOptions)

// WithConfigFile loads path instead of searching DefaultFiles. The file must exist.
func WithConfigFile(path string) Option {
	return func(o *loadOptions) { o.configFile = path }
}

// WithEnvFile loads path instead of ./.env. The file must exist.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// Load reads defaults, then the YAML file, then the environment (after
// loading the .env file, which never overrides variables already set), and
// validates the result.
func Load(opts ...Option) (*Config, error) {
	var lo loadOptions
	for _, opt := range opts {
		opt(&lo)
	}

	v := viper.New()
	setDefaults(v)

	configFile := lo.configFile
	if configFile == "" {
		configFile = firstExisting(DefaultFiles)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
	}

	envFile := lo.envFile
	if envFile == "" && exists(".env") {
		envFile = ".env"
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Engine = strings.TrimSpace(cfg.Engine)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine", "fake")
	v.SetDefault("language", "")
	v.SetDefault("audio.sample_rate", 0)
	v.SetDefault("audio.channels", 0)
	v.SetDefault("audio.encoding", "")
	v.SetDefault("audio.resample_quality", audio.DefaultResampleQuality)
	v.SetDefault("audio.max_frames", audio.DefaultMaxFrames)
	v.SetDefault("sidecar.url", transcriber.DefaultSidecarURL)
	v.SetDefault("sidecar.model", transcriber.DefaultSidecarModel)
	v.SetDefault("sidecar.timeout", transcriber.DefaultSidecarTimeout)
	v.SetDefault("fake.text", "")
	v.SetDefault("log.path", "")
	v.SetDefault("metrics.endpoint", "")
	v.SetDefault("metrics.insecure", false)
	v.SetDefault("metrics.interval", 30*time.Second)
}

// Format returns the configured sample format, or the zero Format when
// nothing is overridden. Unset fields are taken from audio.DefaultFormat.
func (c *Config) Format() (audio.Format, error) {
	a := c.Audio
	if a.SampleRate == 0 && a.Channels == 0 && a.Encoding == "" {
		return audio.Format{}, nil
	}
	f := audio.DefaultFormat
	if a.SampleRate != 0 {
		f.SampleRate = a.SampleRate
	}
	if a.Channels != 0 {
		f.Channels = a.Channels
	}
	if a.Encoding != "" {
		enc, err := audio.ParseEncoding(a.Encoding)
		if err != nil {
			return audio.Format{}, err
		}
		f.Encoding = enc
	}
	if err := f.Validate(); err != nil {
		return audio.Format{}, fmt.Errorf("audio: %w", err)
	}
	return f, nil
}

func (c *Config) Normalizer() *audio.Normalizer {
	return &audio.Normalizer{Quality: c.Audio.ResampleQuality, MaxFrames: c.Audio.MaxFrames}
}

// EngineOptions builds the options passed to the engine factory.
func (c *Config) EngineOptions() (transcriber.Options, error) {
	f, err := c.Format()
	if err != nil {
		return transcriber.Options{}, err
	}
	return transcriber.Options{
		Format:         f,
		Language:       c.Language,
		SidecarURL:     c.Sidecar.URL,
		SidecarModel:   c.Sidecar.Model,
		SidecarTimeout: c.Sidecar.Timeout,
		FakeText:       c.Fake.Text,
	}, nil
}

func (c *Config) MeterConfig(version string) telemetry.MeterConfig {
	return telemetry.MeterConfig{
		ServiceName:    "memoscribe",
		ServiceVersion: version,
		Endpoint:       c.Metrics.Endpoint,
		Insecure:       c.Metrics.Insecure,
		Interval:       c.Metrics.Interval,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their config key.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks struct tags and reports every failing key.
func Validate(c *Config) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("invalid config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, keyOf(fe)+": "+describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// keyOf turns "Config.audio.sample_rate" into "audio.sample_rate".
func keyOf(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "hostname_port":
		return "must be host:port"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if exists(p) {
			return p
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
