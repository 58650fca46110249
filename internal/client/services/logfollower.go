package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagegen/internal/client/client"
	"github.com/dmitrijs2005/imagegen/internal/logging"
)

// DefaultLogPollInterval is how often LogFollower.Run polls by default.
const DefaultLogPollInterval = 10 * time.Second

// LogFollower accumulates backend log chunks. Non-empty chunks are appended
// to the buffer separated by "\n" and echoed to the writer.
type LogFollower struct {
	api      client.Client
	interval time.Duration
	out      io.Writer
	log      logging.Logger

	mu  sync.Mutex
	buf strings.Builder
}

// NewLogFollower returns a follower polling every interval. A non-positive
// interval means DefaultLogPollInterval; a nil out discards the echo.
func NewLogFollower(api client.Client, interval time.Duration, out io.Writer, log logging.Logger) *LogFollower {
	if interval <= 0 {
		interval = DefaultLogPollInterval
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logging.Nop()
	}
	return &LogFollower{api: api, interval: interval, out: out, log: log.With("component", "logs")}
}

// Poll fetches one chunk and appends it. It returns the chunk.
func (f *LogFollower) Poll(ctx context.Context) (string, error) {
	chunk, err := f.api.GetLogs(ctx)
	if err != nil {
		return "", err
	}
	if chunk == "" {
		return "", nil
	}

	f.mu.Lock()
	if f.buf.Len() > 0 {
		f.buf.WriteByte('\n')
	}
	f.buf.WriteString(chunk)
	f.mu.Unlock()

	_, _ = fmt.Fprintln(f.out, chunk)
	return chunk, nil
}

// Run polls immediately and then on every tick until ctx is done. Poll
// errors are logged and polling goes on.
func (f *LogFollower) Run(ctx context.Context) {
	t := time.NewTicker(f.interval)
	defer t.Stop()

	for {
		if _, err := f.Poll(ctx); err != nil && ctx.Err() == nil {
			f.log.Warn(ctx, "log poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Text returns everything accumulated so far.
func (f *LogFollower) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buf.String()
}

func (f *LogFollower) Clear() {
	f.mu.Lock()
	f.buf.Reset()
	f.mu.Unlock()
}
