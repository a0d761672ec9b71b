// Package logger is the leveled logger shared by every farmwiz component.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a log level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of a log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Logger is a leveled logger writing one line per entry.
// A Logger created with a component name prefixes every line with it.
type Logger struct {
	mu        *sync.Mutex
	level     *Level
	logger    *log.Logger
	file      *os.File
	component string
}

// Default is the process-wide logger used by the package-level functions.
var Default *Logger

func init() {
	Default = New()
}

// New creates a logger configured from FARMWIZ_LOG_LEVEL and FARMWIZ_LOG_FILE.
// Without a log file everything is discarded so terminal front ends stay clean.
func New() *Logger {
	level := LevelInfo
	l := &Logger{
		mu:     &sync.Mutex{},
		level:  &level,
		logger: log.New(io.Discard, "", log.LstdFlags),
	}

	if levelStr := os.Getenv("FARMWIZ_LOG_LEVEL"); levelStr != "" {
		if parsed, err := ParseLevel(levelStr); err == nil {
			*l.level = parsed
		}
	}

	if logFile := os.Getenv("FARMWIZ_LOG_FILE"); logFile != "" {
		_ = l.openFile(logFile)
	}

	return l
}

// Configure applies a level and log file chosen after startup (config files, flags).
// An empty file leaves the current output untouched; "-" logs to stderr.
func (l *Logger) Configure(level, file string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.SetLevel(parsed)

	switch file {
	case "":
		return nil
	case "-":
		l.SetOutput(os.Stderr)
		return nil
	default:
		return l.openFile(file)
	}
}

func (l *Logger) openFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = f
	l.logger.SetOutput(f)
	return nil
}

// With returns a logger sharing output and level that tags lines with component.
func (l *Logger) With(component string) *Logger {
	return &Logger{
		mu:        l.mu,
		level:     l.level,
		logger:    l.logger,
		file:      l.file,
		component: component,
	}
}

// Close closes the logger and any open file handles
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.logger.SetOutput(io.Discard)
		return err
	}
	return nil
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

// SetOutput sets the output writer
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.SetOutput(w)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...any) {
	l.log(LevelDebug, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...any) {
	l.log(LevelInfo, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...any) {
	l.log(LevelWarn, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...any) {
	l.log(LevelError, format, v...)
}

func (l *Logger) log(level Level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < *l.level {
		return
	}

	msg := fmt.Sprintf(format, v...)
	if l.component != "" {
		l.logger.Printf("[%s] %s: %s", level, l.component, msg)
		return
	}
	l.logger.Printf("[%s] %s", level, msg)
}

// Package-level functions that use the default logger

// Debug logs a debug message using the default logger
func Debug(format string, v ...any) {
	Default.Debug(format, v...)
}

// Info logs an info message using the default logger
func Info(format string, v ...any) {
	Default.Info(format, v...)
}

// Warn logs a warning message using the default logger
func Warn(format string, v ...any) {
	Default.Warn(format, v...)
}

// Error logs an error message using the default logger
func Error(format string, v ...any) {
	Default.Error(format, v...)
}

// Configure re-targets the default logger.
func Configure(level, file string) error {
	return Default.Configure(level, file)
}

// With returns a component logger derived from the default logger.
func With(component string) *Logger {
	return Default.With(component)
}

// Close closes the default logger
func Close() error {
	return Default.Close()
}
