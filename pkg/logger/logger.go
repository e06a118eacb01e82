// Package logger builds the slog loggers used by the mangagraph commands.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ANSI colors used by ColorHandler.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

// Config selects the handler of a logger.
type Config struct {
	Level slog.Level
	// Format is "text" or "json".
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
	// Color enables ANSI colors for the text format.
	Color bool
}

// NewDefaultLogger returns a colored text logger writing to stderr.
func NewDefaultLogger(level slog.Level) *slog.Logger {
	return NewLogger(Config{Level: level, Format: "text", Output: os.Stderr, Color: true})
}

// NewLogger returns a logger for cfg.
func NewLogger(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	if cfg.Color {
		return slog.New(NewColorHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ColorHandler is a text handler that colors warnings yellow, errors red
// and graph store messages green.
type ColorHandler struct {
	mu   *sync.Mutex
	out  io.Writer
	opts *slog.HandlerOptions
	h    slog.Handler
	buf  *lineBuffer
}

// lineBuffer collects one formatted record from the inner handler.
type lineBuffer struct {
	b []byte
}

func (l *lineBuffer) Write(p []byte) (int, error) {
	l.b = append(l.b, p...)
	return len(p), nil
}

// NewColorHandler creates a ColorHandler writing to out.
func NewColorHandler(out io.Writer, opts *slog.HandlerOptions) *ColorHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	buf := &lineBuffer{}
	return &ColorHandler{
		mu:   &sync.Mutex{},
		out:  out,
		opts: opts,
		h:    slog.NewTextHandler(buf, opts),
		buf:  buf,
	}
}

func (c *ColorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return c.h.Enabled(ctx, level)
}

func (c *ColorHandler) Handle(ctx context.Context, r slog.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.b = c.buf.b[:0]
	if err := c.h.Handle(ctx, r); err != nil {
		return err
	}
	line := c.buf.b
	color := colorFor(r)
	if color == "" {
		_, err := c.out.Write(line)
		return err
	}
	trimmed := strings.TrimSuffix(string(line), "\n")
	_, err := fmt.Fprintf(c.out, "%s%s%s\n", color, trimmed, colorReset)
	return err
}

func (c *ColorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ColorHandler{mu: c.mu, out: c.out, opts: c.opts, h: c.h.WithAttrs(attrs), buf: c.buf}
}

func (c *ColorHandler) WithGroup(name string) slog.Handler {
	return &ColorHandler{mu: c.mu, out: c.out, opts: c.opts, h: c.h.WithGroup(name), buf: c.buf}
}

func colorFor(r slog.Record) string {
	switch {
	case r.Level >= slog.LevelError:
		return colorRed
	case r.Level >= slog.LevelWarn:
		return colorYellow
	}
	msg := strings.ToLower(r.Message)
	if strings.Contains(msg, "graph store") || strings.Contains(msg, "fixture") {
		return colorGreen
	}
	return ""
}
