package config

import "os"

// parseEnv overlays cfg with IMAGEGEN_* environment variables.
func parseEnv(cfg *Config) {
	setString(&cfg.APIBaseURL, os.Getenv("IMAGEGEN_API_URL"))
	setString(&cfg.DatabasePath, os.Getenv("IMAGEGEN_DB"))
	setString(&cfg.LogFormat, os.Getenv("IMAGEGEN_LOG_FORMAT"))
	setString(&cfg.LogLevel, os.Getenv("IMAGEGEN_LOG_LEVEL"))
	setString(&cfg.Archive.Bucket, os.Getenv("IMAGEGEN_ARCHIVE_BUCKET"))
	setString(&cfg.Archive.AccessKey, os.Getenv("IMAGEGEN_ARCHIVE_ACCESS_KEY"))
	setString(&cfg.Archive.SecretKey, os.Getenv("IMAGEGEN_ARCHIVE_SECRET_KEY"))
}
