package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level     string
	Console   bool
	Component string
}

type ctxKey string

const ctxSubmissionKey ctxKey = "submission_id"

func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	lvl := zerolog.InfoLevel
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	}

	ctx := zerolog.New(out).Level(lvl).With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return ctx.Logger()
}

// Nop is used by components constructed without a logger.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSubmissionKey, id)
}

// FromContext returns a child logger carrying the submission id, if any.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	if parent == nil {
		parent = Nop()
	}
	id, _ := ctx.Value(ctxSubmissionKey).(string)
	if id == "" {
		return parent
	}
	l := parent.With().Str("submission_id", id).Logger()
	return &l
}
