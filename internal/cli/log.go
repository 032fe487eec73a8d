package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/vfdiscovery/pkg/errors"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// openLogOutput returns w teed into the file at path, opened for append,
// and the file itself. An empty path returns w unchanged and a nil file.
func openLogOutput(w io.Writer, path string) (io.Writer, *os.File, error) {
	if path == "" {
		return w, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeApp, err, "open log file %s", path)
	}
	return io.MultiWriter(w, f), f, nil
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Discovered 12 components (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// heldOutput collects log lines while the progress view owns the terminal.
type heldOutput struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (h *heldOutput) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buf.Write(p)
}

// holdLogs diverts the terminal side of the logger into a buffer; the log
// file keeps receiving every line. The returned func restores the output
// and writes the held lines to stderr.
func (c *CLI) holdLogs() (release func()) {
	held := &heldOutput{}
	var out io.Writer = held
	if c.logSink != nil {
		out = io.MultiWriter(held, c.logSink)
	}
	c.Logger.SetOutput(out)

	return func() {
		c.Logger.SetOutput(c.logOutput)
		held.mu.Lock()
		defer held.mu.Unlock()
		_, _ = held.buf.WriteTo(c.stderr)
	}
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
