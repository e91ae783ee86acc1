package logger

import (
	"io"
	"log/slog"
)

// Format picks the record encoding.
type Format int

const (
	// FormatText is slog's key=value text output.
	FormatText Format = iota
	// FormatPretty is colorized charmbracelet/log output for terminals.
	FormatPretty
	// FormatJSON is one JSON object per record, for services and pipes.
	FormatJSON
)

// FormatFor returns FormatPretty for an interactive terminal and FormatJSON
// otherwise.
func FormatFor(tty bool) Format {
	if tty {
		return FormatPretty
	}
	return FormatJSON
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter sends output to w instead of stdout.
func WithWriter(w io.Writer) Option {
	return WithWriters(w)
}

// WithWriters sends output to every w.
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource adds the calling file and line to each record.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}
