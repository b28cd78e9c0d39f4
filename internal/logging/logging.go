// Package logging builds the process logger.
//
// The TUI owns the terminal, so nothing is ever logged to stdout or stderr: logs go to a
// file when one is configured and are discarded otherwise.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON file logger at level, or a no-op logger when path is empty.
// The returned func flushes and closes the file.
func New(path, level string) (*zap.Logger, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return zap.NewNop(), func() {}, nil
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), lvl)
	log := zap.New(core, zap.AddCaller()).With(zap.Int("pid", os.Getpid()))

	closeFn := func() {
		_ = log.Sync()
		_ = f.Close()
	}
	return log, closeFn, nil
}

func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.TrimSpace(level)
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	return lvl, nil
}
