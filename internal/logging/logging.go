package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/imamik/tpunanny/internal/worker"
)

// Options configures the base logger.
type Options struct {
	// Verbosity enables logr V(n) lines up to n.
	Verbosity int
	// Development switches to zap's development mode (stack traces on warn).
	Development bool
	// Stream receives log lines. Defaults to os.Stderr.
	Stream io.Writer
}

// New builds the base logger.
func New(opts Options) logr.Logger {
	stream := opts.Stream
	if stream == nil {
		stream = os.Stderr
	}
	core := zapcore.NewCore(encoder(), zapcore.Lock(zapcore.AddSync(stream)), level(opts.Verbosity))

	zapOpts := []zap.Option{zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(stream)))}
	if opts.Development {
		zapOpts = append(zapOpts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}
	return zapr.NewLogger(zap.New(core, zapOpts...))
}

// WorkerSinks creates per-worker loggers.
type WorkerSinks struct {
	// Dir holds the per-worker log files.
	Dir string
	// Stream, when set, also receives every worker's lines.
	Stream io.Writer
	// Verbosity enables logr V(n) lines up to n.
	Verbosity int
}

// FileName returns the log file name for a worker.
func FileName(id worker.Identity) string {
	return fmt.Sprintf("%s-%s.txt", id.Zone, id.ID)
}

// ForWorker opens (and truncates) the worker's log file and returns a logger
// writing to it, plus a func that flushes and closes the file.
func (s WorkerSinks) ForWorker(id worker.Identity) (logr.Logger, func() error, error) {
	if err := os.MkdirAll(s.Dir, 0o750); err != nil {
		return logr.Discard(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(s.Dir, FileName(id))
	// #nosec G304
	file, err := os.Create(path)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("failed to open worker log %s: %w", path, err)
	}

	lvl := level(s.Verbosity)
	cores := []zapcore.Core{zapcore.NewCore(encoder(), zapcore.AddSync(file), lvl)}
	if s.Stream != nil {
		cores = append(cores, zapcore.NewCore(encoder(), zapcore.Lock(zapcore.AddSync(s.Stream)), lvl))
	}

	zl := zap.New(zapcore.NewTee(cores...))
	closeFn := func() error {
		_ = zl.Sync()
		return file.Close()
	}
	return zapr.NewLogger(zl), closeFn, nil
}

func encoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// level maps a logr verbosity onto the zap level enabling it.
func level(verbosity int) zapcore.Level {
	if verbosity < 0 {
		verbosity = 0
	}
	return zapcore.Level(-verbosity)
}
