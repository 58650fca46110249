package config

import (
	"strings"
	"time"
)

// ArchiveConfig describes the optional S3-compatible bucket that generated
// images are copied to. An empty Bucket disables archiving.
type ArchiveConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether archiving was configured.
func (a ArchiveConfig) Enabled() bool {
	return a.Bucket != ""
}

// Config holds runtime settings for the imagegen CLI.
//
// RequestTimeout of zero means no deadline is imposed on backend calls.
type Config struct {
	APIBaseURL      string
	DatabasePath    string
	RequestTimeout  time.Duration
	LogPollInterval time.Duration
	LogFormat       string
	LogLevel        string
	Archive         ArchiveConfig
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:9000"
	c.DatabasePath = "imagegen.db"
	c.RequestTimeout = 0
	c.LogPollInterval = 10 * time.Second
	c.LogFormat = "text"
	c.LogLevel = "info"
	c.Archive = ArchiveConfig{
		Region: "us-east-1",
		Prefix: "generated",
	}
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return cfg
}
