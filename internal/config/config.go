package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultBackendURL     = "http://127.0.0.1:5001/api"
	DefaultBackendTimeout = 10 * time.Minute
	DefaultTTSRetryDelay  = 1500 * time.Millisecond
	DefaultDownloadThread = 4
	DefaultSceneThreshold = 0.3
	DefaultSceneInterval  = 0.5
	DefaultTTSModel       = "eleven_v3"
	DefaultTTSFormat      = "mp3_44100_128"
	DefaultCacheTTL       = 86400
	DefaultCacheMaxSizeMB = 100

	configFileName = "config.yaml"
	outputTypeFile = "file"
)

// Output modes for the live terminal UI.
const (
	TUIAuto   = "auto"
	TUIAlways = "always"
	TUINever  = "never"
)

// Environment variable names read by ApplyEnvOverrides.
const (
	EnvHome           = "MEDIABATCH_HOME"
	EnvProjectDir     = "MEDIABATCH_PROJECT_DIR"
	EnvBackendURL     = "MEDIABATCH_BACKEND_URL"
	EnvBackendTimeout = "MEDIABATCH_BACKEND_TIMEOUT"
	EnvLogLevel       = "MEDIABATCH_LOG_LEVEL"
	EnvLogFormat      = "MEDIABATCH_LOG_FORMAT"
	EnvLogFile        = "MEDIABATCH_LOG_FILE"
	EnvGladiaKeys     = "MEDIABATCH_GLADIA_KEYS"
	EnvElevenLabsKeys = "MEDIABATCH_ELEVENLABS_KEYS"
	EnvOutputFormat   = "MEDIABATCH_OUTPUT_FORMAT"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full mediabatch configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Keys    KeysConfig    `yaml:"keys"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`

	configPath string
}

// BackendConfig locates the local processing backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`

	// MinVersion, when set, is compared with the version reported by the health endpoint.
	MinVersion string `yaml:"min_version,omitempty"`
}

// KeysConfig holds API keys. Empty lists fall back to the backend settings endpoints.
type KeysConfig struct {
	Gladia     []string        `yaml:"gladia,omitempty"`
	ElevenLabs []ElevenLabsKey `yaml:"elevenlabs,omitempty"`
}

// ElevenLabsKey is one text-to-speech key.
type ElevenLabsKey struct {
	Key     string `yaml:"key"`
	Enabled bool   `yaml:"enabled"`
}

// UnmarshalYAML accepts either a bare key string or a {key, enabled} mapping.
// Keys are enabled unless stated otherwise.
func (k *ElevenLabsKey) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		k.Key = node.Value
		k.Enabled = true
		return nil
	}

	type plain ElevenLabsKey
	v := plain{Enabled: true}
	if err := node.Decode(&v); err != nil {
		return err
	}
	*k = ElevenLabsKey(v)
	return nil
}

// EnabledElevenLabsKeys returns the enabled, non-empty keys.
func (k KeysConfig) EnabledElevenLabsKeys() []string {
	var keys []string
	for _, key := range k.ElevenLabs {
		if key.Enabled && strings.TrimSpace(key.Key) != "" {
			keys = append(keys, key.Key)
		}
	}
	return keys
}

// JobConfig holds scheduling settings shared by every job kind.
type JobConfig struct {
	// Concurrency overrides the key-derived concurrency when positive.
	Concurrency int `yaml:"concurrency,omitempty"`

	// RetryDelay is the pause between consecutive retries of a bulk retry.
	RetryDelay time.Duration `yaml:"retry_delay,omitempty"`
}

// SubtitleJobConfig configures subtitle generation.
type SubtitleJobConfig struct {
	JobConfig `yaml:",inline"`

	Language  string  `yaml:"language,omitempty"`
	CutLength float64 `yaml:"cut_length,omitempty"`
}

// TTSJobConfig configures text-to-speech generation.
type TTSJobConfig struct {
	JobConfig `yaml:",inline"`

	Voice  string `yaml:"voice,omitempty"`
	Model  string `yaml:"model,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// SceneJobConfig configures scene detection.
type SceneJobConfig struct {
	JobConfig `yaml:",inline"`

	Threshold   float64 `yaml:"threshold,omitempty"`
	MinInterval float64 `yaml:"min_interval,omitempty"`
	UseCache    bool    `yaml:"use_cache"`
}

// DownloadJobConfig configures video downloads.
type DownloadJobConfig struct {
	JobConfig `yaml:",inline"`

	OutputDir string `yaml:"output_dir,omitempty"`
	Quality   string `yaml:"quality,omitempty"`
	Ext       string `yaml:"ext,omitempty"`
}

// JobsConfig groups per-kind job settings.
type JobsConfig struct {
	Subtitle SubtitleJobConfig `yaml:"subtitle"`
	TTS      TTSJobConfig      `yaml:"tts"`
	Scene    SceneJobConfig    `yaml:"scene"`
	Download DownloadJobConfig `yaml:"download"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	Directory  string `yaml:"directory,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// OutputConfig configures result rendering.
type OutputConfig struct {
	// DefaultFormat is "table" or "json".
	DefaultFormat string `yaml:"default_format"`

	// TUI is "auto", "always" or "never".
	TUI string `yaml:"tui"`
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	cfg := &Config{
		Backend: BackendConfig{
			URL:     DefaultBackendURL,
			Timeout: DefaultBackendTimeout,
		},
		Jobs: JobsConfig{
			Subtitle: SubtitleJobConfig{Language: "en", CutLength: 5},
			TTS: TTSJobConfig{
				JobConfig: JobConfig{RetryDelay: DefaultTTSRetryDelay},
				Model:     DefaultTTSModel,
				Format:    DefaultTTSFormat,
			},
			Scene: SceneJobConfig{
				JobConfig:   JobConfig{Concurrency: 1},
				Threshold:   DefaultSceneThreshold,
				MinInterval: DefaultSceneInterval,
				UseCache:    true,
			},
			Download: DownloadJobConfig{
				JobConfig: JobConfig{Concurrency: DefaultDownloadThread},
				Quality:   "best",
				Ext:       "mp4",
			},
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: DefaultCacheTTL,
			MaxSizeMB:  DefaultCacheMaxSizeMB,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Output: OutputConfig{
			DefaultFormat: "table",
			TUI:           TUIAuto,
		},
	}

	if dir, err := GetConfigDir(); err == nil {
		cfg.configPath = filepath.Join(dir, configFileName)
		cfg.Logging.File = filepath.Join(dir, "logs", "mediabatch.log")
		cfg.Cache.Directory = filepath.Join(dir, "cache")
	}
	return cfg
}

// New returns the defaults overlaid with the global config file, if it exists,
// and then with environment overrides. A malformed file is reported on stderr and
// ignored so the CLI stays usable.
func New() *Config {
	cfg := Default()
	if cfg.configPath != "" {
		if err := cfg.Load(cfg.configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: ignoring config file: %v\n", err)
		}
	}
	cfg.ApplyEnvOverrides()
	return cfg
}

// Load reads a YAML file onto cfg. Keys absent from the file keep their values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Save writes cfg to its config path, creating the directory if needed.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp := c.configPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.Rename(tmp, c.configPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file Save writes to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// ApplyEnvOverrides applies MEDIABATCH_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvBackendURL); v != "" {
		c.Backend.URL = v
	}
	if v := os.Getenv(EnvBackendTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Backend.Timeout = d
		}
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		c.Logging.File = v
	}
	if v := os.Getenv(EnvGladiaKeys); v != "" {
		c.Keys.Gladia = splitList(v)
	}
	if v := os.Getenv(EnvElevenLabsKeys); v != "" {
		c.Keys.ElevenLabs = nil
		for _, key := range splitList(v) {
			c.Keys.ElevenLabs = append(c.Keys.ElevenLabs, ElevenLabsKey{Key: key, Enabled: true})
		}
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		c.Output.DefaultFormat = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks value ranges and formats.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.url %q must be an absolute URL", c.Backend.URL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Backend.MinVersion != "" {
		if _, err := semver.NewConstraint(">= " + c.Backend.MinVersion); err != nil {
			errs = append(errs, fmt.Errorf("backend.min_version %q: %w", c.Backend.MinVersion, err))
		}
	}

	jobs := map[string]JobConfig{
		"subtitle": c.Jobs.Subtitle.JobConfig,
		"tts":      c.Jobs.TTS.JobConfig,
		"scene":    c.Jobs.Scene.JobConfig,
		"download": c.Jobs.Download.JobConfig,
	}
	for _, name := range []string{"subtitle", "tts", "scene", "download"} {
		job := jobs[name]
		if job.Concurrency < 0 {
			errs = append(errs, fmt.Errorf("jobs.%s.concurrency must not be negative", name))
		}
		if job.RetryDelay < 0 {
			errs = append(errs, fmt.Errorf("jobs.%s.retry_delay must not be negative", name))
		}
	}
	if t := c.Jobs.Scene.Threshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("jobs.scene.threshold %v must be between 0 and 1", t))
	}
	if c.Jobs.Scene.MinInterval < 0 {
		errs = append(errs, errors.New("jobs.scene.min_interval must not be negative"))
	}

	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, errors.New("cache.ttl_seconds must not be negative"))
	}
	if c.Cache.MaxSizeMB < 0 {
		errs = append(errs, errors.New("cache.max_size_mb must not be negative"))
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	switch c.Output.DefaultFormat {
	case "", "table", "json":
	default:
		errs = append(errs, fmt.Errorf("output.default_format %q must be table or json", c.Output.DefaultFormat))
	}
	switch c.Output.TUI {
	case "", TUIAuto, TUIAlways, TUINever:
	default:
		errs = append(errs, fmt.Errorf("output.tui %q must be auto, always or never", c.Output.TUI))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
