// Package logging provides leveled logging on top of the standard logger,
// with optional size-based file rotation.
package logging

import (
	"io"
	"log"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hmiyata/cascade/internal/model"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Logger is a leveled wrapper around log.Logger.
type Logger struct {
	logger *log.Logger
	level  Level
	closer io.Closer
}

// New builds a logger from config. When a file is configured, output goes
// through a rotating file writer; otherwise it goes to stderr.
func New(cfg model.LoggingConfig) *Logger {
	level := ParseLevel(cfg.Level)

	if cfg.File == "" {
		return &Logger{
			logger: log.New(os.Stderr, "", log.LstdFlags),
			level:  level,
		}
	}

	rotating := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	return &Logger{
		logger: log.New(rotating, "", log.LstdFlags),
		level:  level,
		closer: rotating,
	}
}

// NewWithWriter is intended for tests.
func NewWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{
		logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{
		logger: log.New(io.Discard, "", 0),
		level:  LevelError,
	}
}

func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	l.logger.Printf("["+level.String()+"] "+format, args...)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }
