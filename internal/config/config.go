package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env      string   `mapstructure:"env"` // local, dev, production
	Backend  Backend  `mapstructure:"backend"`
	Session  Session  `mapstructure:"session"`
	Playback Playback `mapstructure:"playback"`
	Journal  Journal  `mapstructure:"journal"`
	Log      Log      `mapstructure:"log"`
}

// Backend describes where the sentence service and its audio live.
type Backend struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIPath   string        `mapstructure:"api_path"`
	AudioPath string        `mapstructure:"audio_path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Session holds the attempt and completion thresholds.
type Session struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RevealAfterErrors int           `mapstructure:"reveal_after_errors"`
	MasteryThreshold  int           `mapstructure:"mastery_threshold"`
	AdvanceDelay      time.Duration `mapstructure:"advance_delay"`
	MatchPolicy       string        `mapstructure:"match_policy"`
}

// Playback configures the external audio player and the loop thresholds.
type Playback struct {
	Enabled       bool          `mapstructure:"enabled"`
	Command       string        `mapstructure:"command"`
	Args          []string      `mapstructure:"args"`
	ReplayDelay   time.Duration `mapstructure:"replay_delay"`
	SlowdownAfter int           `mapstructure:"slowdown_after"`
	RevealAfter   int           `mapstructure:"reveal_after"`
	CacheDir      string        `mapstructure:"cache_dir"`
}

type Journal struct {
	DSN string `mapstructure:"dsn"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from an optional .env file, an optional YAML file
// and NOUNFILL_* environment variables. An empty path searches the default
// locations.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("nounfill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	v.SetEnvPrefix("nounfill")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")

	v.SetDefault("backend.base_url", "http://localhost:5050")
	v.SetDefault("backend.api_path", "/api")
	v.SetDefault("backend.audio_path", "/audio")
	v.SetDefault("backend.timeout", "10s")

	v.SetDefault("session.max_attempts", 5)
	v.SetDefault("session.reveal_after_errors", 3)
	v.SetDefault("session.mastery_threshold", 2)
	v.SetDefault("session.advance_delay", "1500ms")
	v.SetDefault("session.match_policy", "set")

	v.SetDefault("playback.enabled", true)
	v.SetDefault("playback.command", "mpv")
	v.SetDefault("playback.args", []string{"--no-video", "--really-quiet", "--speed={speed}", "{file}"})
	v.SetDefault("playback.replay_delay", "200ms")
	v.SetDefault("playback.slowdown_after", 6)
	v.SetDefault("playback.reveal_after", 12)
	v.SetDefault("playback.cache_dir", "")

	v.SetDefault("journal.dsn", ":memory:")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "nounfill.log")
}

// Validate checks the values that cannot be fixed up by defaults.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: backend.base_url %q is not an absolute URL", ErrInvalidConfig, c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("%w: backend.timeout must be positive", ErrInvalidConfig)
	}

	s := c.Session
	if s.MaxAttempts <= 0 || s.RevealAfterErrors <= 0 || s.MasteryThreshold <= 0 {
		return fmt.Errorf("%w: session thresholds must be positive", ErrInvalidConfig)
	}
	if s.RevealAfterErrors > s.MaxAttempts {
		return fmt.Errorf("%w: session.reveal_after_errors (%d) exceeds session.max_attempts (%d)",
			ErrInvalidConfig, s.RevealAfterErrors, s.MaxAttempts)
	}
	switch s.MatchPolicy {
	case "set", "positional":
	default:
		return fmt.Errorf("%w: unknown session.match_policy %q", ErrInvalidConfig, s.MatchPolicy)
	}

	p := c.Playback
	if p.SlowdownAfter <= 0 || p.RevealAfter <= 0 {
		return fmt.Errorf("%w: playback thresholds must be positive", ErrInvalidConfig)
	}
	if p.Enabled && p.Command == "" {
		return fmt.Errorf("%w: playback.command is empty", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	return nil
}
