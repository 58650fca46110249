package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "http://10.0.0.5:9000", "-d", "/tmp/x.db", "-t", "30", "-i", "5", "-log-format", "zap", "-log-level", "warn"},
			expected: &Config{
				APIBaseURL:      "http://10.0.0.5:9000",
				DatabasePath:    "/tmp/x.db",
				RequestTimeout:  30 * time.Second,
				LogPollInterval: 5 * time.Second,
				LogFormat:       "zap",
				LogLevel:        "warn",
			},
		},
		{
			name:     "config flag is ignored here",
			args:     []string{"cmd", "-c", "cfg.json", "-a", "http://x"},
			expected: &Config{APIBaseURL: "http://x"},
		},
		{
			name:        "incorrect poll interval",
			args:        []string{"cmd", "-i", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			cfg := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseFlags_KeepsDurationsWhenNotGiven(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-a", "http://x"}

	cfg := &Config{LogPollInterval: 1500 * time.Millisecond, RequestTimeout: 250 * time.Millisecond}
	parseFlags(cfg)

	assert.Equal(t, 1500*time.Millisecond, cfg.LogPollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
}
