// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ai-doc-generator/internal/infra/extract"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

// RedisConfig is optional; an empty URL disables rate limiting.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type AIConfig struct {
	Provider          string        `yaml:"provider"` // gemini|openai|metis|fake
	GeminiKey         string        `yaml:"gemini_key"`
	GeminiURL         string        `yaml:"gemini_url"`
	OpenAIKey         string        `yaml:"openai_key"`
	OpenAIBaseURL     string        `yaml:"openai_base_url"`
	MetisKey          string        `yaml:"metis_key"`
	MetisBaseURL      string        `yaml:"metis_base_url"`
	DefaultModel      string        `yaml:"default_model"`
	MaxOutputTokens   int           `yaml:"max_output_tokens"`
	ConcurrentLimit   int           `yaml:"concurrent_limit"` // max concurrent AI calls
	CallTimeout       time.Duration `yaml:"call_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

type GenerationConfig struct {
	MinBatch          int           `yaml:"min_batch"`
	MaxBatch          int           `yaml:"max_batch"`
	DefaultBatch      int           `yaml:"default_batch"`
	Cooldown          time.Duration `yaml:"cooldown"`
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	Retention         time.Duration `yaml:"retention"`
	ReapSchedule      string        `yaml:"reap_schedule"`
	OutputDir         string        `yaml:"output_dir"`
	MaxFileBytes      int64         `yaml:"max_file_bytes"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	AI         AIConfig         `yaml:"ai"`
	Generation GenerationConfig `yaml:"generation"`

	Runtime RuntimeConfig `yaml:"-"`
}

// DefaultExtensions are the source types the extractors understand.
var DefaultExtensions = extract.NewRegistry().Extensions()

// LoadConfig reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path yields the defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets API keys come from the environment instead of the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAIKey = v
	}
	if v := os.Getenv("METIS_API_KEY"); v != "" {
		cfg.AI.MetisKey = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
}

func applyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Port <= 0 {
		s.Port = 4000
	}
	s.ReadTimeout = orDuration(s.ReadTimeout, 15*time.Second)
	s.WriteTimeout = orDuration(s.WriteTimeout, 30*time.Second)
	if s.MaxUploadMB <= 0 {
		s.MaxUploadMB = 32
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 30
	}
	cfg.RateLimit.Window = orDuration(cfg.RateLimit.Window, time.Minute)

	a := &cfg.AI
	a.Provider = strings.ToLower(strings.TrimSpace(a.Provider))
	if a.Provider == "" {
		a.Provider = "gemini"
	}
	if a.DefaultModel == "" {
		a.DefaultModel = "gemini-2.0-flash-lite"
	}
	if a.MaxOutputTokens <= 0 {
		a.MaxOutputTokens = 2048
	}
	if a.ConcurrentLimit <= 0 {
		a.ConcurrentLimit = 16
	}
	a.CallTimeout = orDuration(a.CallTimeout, 60*time.Second)
	if a.MaxAttempts <= 0 {
		a.MaxAttempts = 3
	}
	a.InitialBackoff = orDuration(a.InitialBackoff, 500*time.Millisecond)
	a.MaxBackoff = orDuration(a.MaxBackoff, 5*time.Second)
	if a.BackoffMultiplier <= 1 {
		a.BackoffMultiplier = 2
	}

	g := &cfg.Generation
	if g.MinBatch <= 0 {
		g.MinBatch = 1
	}
	if g.MaxBatch <= 0 {
		g.MaxBatch = 50
	}
	if g.DefaultBatch <= 0 {
		g.DefaultBatch = 5
	}
	if g.Workers <= 0 {
		g.Workers = 8
	}
	if g.QueueSize <= 0 {
		g.QueueSize = 64
	}
	g.Retention = orDuration(g.Retention, 30*time.Minute)
	if g.ReapSchedule == "" {
		g.ReapSchedule = "@every 1m"
	}
	if g.OutputDir == "" {
		g.OutputDir = "static/generated_docs"
	}
	if g.MaxFileBytes <= 0 {
		g.MaxFileBytes = 1 << 20
	}
	if len(g.AllowedExtensions) == 0 {
		g.AllowedExtensions = append([]string(nil), DefaultExtensions...)
	}
	for i, ext := range g.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		g.AllowedExtensions[i] = ext
	}
}

// Minimal validation
func (c *Config) validate() error {
	switch c.AI.Provider {
	case "gemini":
		if c.AI.GeminiKey == "" {
			return errors.New("ai.gemini_key (or GEMINI_API_KEY) is required for provider gemini")
		}
	case "openai":
		if c.AI.OpenAIKey == "" {
			return errors.New("ai.openai_key (or OPENAI_API_KEY) is required for provider openai")
		}
	case "metis":
		if c.AI.MetisKey == "" {
			return errors.New("ai.metis_key is required for provider metis")
		}
	case "fake":
	default:
		return fmt.Errorf("unknown ai.provider %q", c.AI.Provider)
	}
	g := c.Generation
	if g.MinBatch > g.MaxBatch {
		return fmt.Errorf("generation.min_batch (%d) exceeds generation.max_batch (%d)", g.MinBatch, g.MaxBatch)
	}
	if g.DefaultBatch < g.MinBatch || g.DefaultBatch > g.MaxBatch {
		return fmt.Errorf("generation.default_batch (%d) outside [%d, %d]", g.DefaultBatch, g.MinBatch, g.MaxBatch)
	}
	if g.Cooldown < 0 {
		return errors.New("generation.cooldown must not be negative")
	}
	return nil
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
