package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/imagegen/internal/flagx"
	"github.com/dmitrijs2005/imagegen/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// durations distinguish "absent" from "zero".
type JsonConfig struct {
	APIBaseURL      string          `json:"api_base_url"`
	DatabasePath    string          `json:"database_path"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	LogPollInterval *timex.Duration `json:"log_poll_interval"`
	LogFormat       string          `json:"log_format"`
	LogLevel        string          `json:"log_level"`
	Archive         JsonArchive     `json:"archive"`
}

type JsonArchive struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Prefix    string `json:"prefix"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// It panics on read or unmarshal errors, like parseFlags does on bad flags.
func parseJson(cfg *Config) {
	path := flagx.ConfigPath(os.Args[1:])
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.LogPollInterval != nil {
		cfg.LogPollInterval = jc.LogPollInterval.Duration
	}

	setString(&cfg.Archive.Bucket, jc.Archive.Bucket)
	setString(&cfg.Archive.Region, jc.Archive.Region)
	setString(&cfg.Archive.Endpoint, jc.Archive.Endpoint)
	setString(&cfg.Archive.AccessKey, jc.Archive.AccessKey)
	setString(&cfg.Archive.SecretKey, jc.Archive.SecretKey)
	setString(&cfg.Archive.Prefix, jc.Archive.Prefix)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
