// Package config loads runtime configuration for the imagegen CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Environment variables.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string           backend base URL
//	-d string           path to the local SQLite database
//	-t int              per-request timeout in seconds (0 = none)
//	-i int              log polling interval in seconds
//	-log-format string  text | json | zap
//	-log-level string   debug | info | warn | error
//
// Environment
//
//	IMAGEGEN_API_URL, IMAGEGEN_DB, IMAGEGEN_LOG_FORMAT, IMAGEGEN_LOG_LEVEL,
//	IMAGEGEN_ARCHIVE_BUCKET, IMAGEGEN_ARCHIVE_ACCESS_KEY, IMAGEGEN_ARCHIVE_SECRET_KEY
//
// # JSON schema
//
// Intervals accept "3s"-style strings or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:9000",
//	  "database_path": "imagegen.db",
//	  "request_timeout": "2m",
//	  "log_poll_interval": "10s",
//	  "log_format": "json",
//	  "log_level": "debug",
//	  "archive": {
//	    "bucket": "renders",
//	    "region": "us-east-1",
//	    "endpoint": "http://127.0.0.1:9000",
//	    "access_key": "admin",
//	    "secret_key": "secret",
//	    "prefix": "generated"
//	  }
//	}
//
// Keys missing from the file leave the earlier value untouched.
package config
