package observability

import (
	"errors"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type Logger struct {
	base *zap.Logger
}

// NewLogger builds a JSON logger, or a console logger when env is
// "development". An empty level means info.
func NewLogger(level, env string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(env, "development") {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}

	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{base: base}, nil
}

func NewNopLogger() *Logger {
	return &Logger{base: zap.NewNop()}
}

func NewFromZap(base *zap.Logger) *Logger {
	return &Logger{base: base}
}

func (l *Logger) Info(message string, fields map[string]any) {
	l.base.Info(message, zapFields(fields)...)
}

func (l *Logger) Warn(message string, fields map[string]any) {
	l.base.Warn(message, zapFields(fields)...)
}

func (l *Logger) Error(message string, fields map[string]any) {
	l.base.Error(message, zapFields(fields)...)
}

func (l *Logger) Sync() error {
	if err := l.base.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

func zapFields(fields map[string]any) []zap.Field {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
