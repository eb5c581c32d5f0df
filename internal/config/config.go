// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Diffbot  DiffbotConfig  `mapstructure:"diffbot"`
	Proxy    ProxyConfig    `mapstructure:"proxy"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Guard    GuardConfig    `mapstructure:"guard"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// HTTPConfig configures the upstream fetch client.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// DiffbotConfig holds the managed extraction service credentials. An empty
// token degrades the managed source to its local fallback chain.
type DiffbotConfig struct {
	Token          string `mapstructure:"token"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ProxyConfig holds the outbound proxy used by the archived source. Absence
// is a hard failure only for that path.
type ProxyConfig struct {
	URL string `mapstructure:"url"`
}

// ArchiveConfig templates the original URL into an archive-service path.
type ArchiveConfig struct {
	SnapshotTemplate string `mapstructure:"snapshot_template"`
}

// RedisConfig holds key-value store connection parameters.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig carries the hand-tuned freshness thresholds. The values are
// preserved for behavioral compatibility and treated as configuration, not
// as algorithmically necessary constants.
type CacheConfig struct {
	MinFreshLength        int `mapstructure:"min_fresh_length"`
	LegacyTruncationBytes int `mapstructure:"legacy_truncation_bytes"`
}

// GuardConfig controls the abuse limiter and the response-size cap.
type GuardConfig struct {
	RateLimit         int   `mapstructure:"rate_limit"`
	RateWindowSeconds int   `mapstructure:"rate_window_seconds"`
	MaxResponseBytes  int64 `mapstructure:"max_response_bytes"`
}

// PipelineConfig controls the race coordinator.
type PipelineConfig struct {
	QualityLength         int     `mapstructure:"quality_length"`
	EnhancementRatio      float64 `mapstructure:"enhancement_ratio"`
	ExtractTimeoutSeconds int     `mapstructure:"extract_timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("READER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("diffbot.endpoint", "https://api.diffbot.com/v3/article")
	v.SetDefault("diffbot.timeout_seconds", 30)
	v.SetDefault("archive.snapshot_template", "https://archive.ph/newest/%s")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.min_fresh_length", 4000)
	v.SetDefault("cache.legacy_truncation_bytes", 250000)
	v.SetDefault("guard.rate_limit", 500)
	v.SetDefault("guard.rate_window_seconds", 900)
	v.SetDefault("guard.max_response_bytes", 25*1024*1024)
	v.SetDefault("pipeline.quality_length", 500)
	v.SetDefault("pipeline.enhancement_ratio", 1.4)
	v.SetDefault("pipeline.extract_timeout_seconds", 30)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Guard.MaxResponseBytes <= 0 {
		return fmt.Errorf("guard.max_response_bytes must be > 0")
	}
	if c.Guard.RateLimit <= 0 || c.Guard.RateWindowSeconds <= 0 {
		return fmt.Errorf("guard rate limit and window must be > 0")
	}
	if c.Pipeline.EnhancementRatio <= 1 {
		return fmt.Errorf("pipeline.enhancement_ratio must be > 1")
	}
	if !strings.Contains(c.Archive.SnapshotTemplate, "%s") {
		return fmt.Errorf("archive.snapshot_template must contain %%s")
	}
	return nil
}
