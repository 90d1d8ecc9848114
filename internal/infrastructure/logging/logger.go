package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/nerrad567/gray-logic-insteon/internal/infrastructure/config"
)

// ServiceName is the "service" attribute on every entry.
const ServiceName = "insteon-bridge"

// Logger is the bridge's structured logger.
//
// Every entry carries service and version. Component loggers add a
// "component" attribute so modem, transport and bridge output can be
// filtered apart. The level can be changed while running with SetLevel and
// applies to all loggers derived from the same root.
type Logger struct {
	*slog.Logger

	level  *slog.LevelVar
	closer io.Closer // rotated log file, root logger only
}

// New builds the root logger from the logging section of config.yaml.
//
// Output "file" writes to a lumberjack-rotated file; "both" writes the same
// entries to stdout and the file. Unknown formats fall back to JSON and
// unknown outputs to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	output, closer := openOutput(cfg)
	logger := newLogger(output, cfg, version)
	logger.closer = closer
	return logger
}

// Default is the logger used until the config file has been read:
// JSON on stdout at info.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// openOutput returns the writer for cfg.Output and the closer to release
// on shutdown, if any.
func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		return os.Stderr, nil
	case "file":
		file := rotatedFile(cfg.File)
		return file, file
	case "both":
		file := rotatedFile(cfg.File)
		return io.MultiWriter(os.Stdout, file), file
	default:
		return os.Stdout, nil
	}
}

func rotatedFile(cfg config.FileLoggingConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

func newLogger(output io.Writer, cfg config.LoggingConfig, version string) *Logger {
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	})
	return &Logger{Logger: slog.New(handler), level: level}
}

// parseLevel maps debug, info, warn (or warning) and error to slog levels,
// case-insensitively. Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying args on every entry. The child
// shares the parent's level and does not own its output.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component returns a child logger tagged component=name.
//
//	log.Component("transport").Warn("reply timeout", "frame", f)
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// SetLevel changes the minimum level for this logger and all loggers
// derived from the same root.
func (l *Logger) SetLevel(level string) {
	if l.level != nil {
		l.level.Set(parseLevel(level))
	}
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	if l.level == nil {
		return slog.LevelInfo
	}
	return l.level.Level()
}

// Close closes the rotated log file. It is a no-op for stdout and stderr
// and for child loggers.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
