package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"boostpanel-backend/config"

	"github.com/rs/zerolog"
)

// New builds the process logger. Format "console" (or dev mode) switches to
// the human readable writer; anything else emits JSON lines.
func New(cfg config.LogConfig, dev bool) zerolog.Logger {
	return NewWithWriter(cfg, dev, os.Stdout)
}

func NewWithWriter(cfg config.LogConfig, dev bool, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if strings.EqualFold(cfg.Format, "console") || dev {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Redact keeps a short preview of secrets such as key values.
func Redact(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}
