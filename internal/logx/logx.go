// Package logx provides the leveled logger used across cpm. Records go to
// the console and, optionally, to a timestamped file in a logs directory.
package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Level orders log records by importance.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelTrace: "trace",
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// ParseLevel accepts the names printed by Level.String plus "warning".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

var tagStyles = map[Level]lipgloss.Style{
	LevelTrace: lipgloss.NewStyle().Faint(true),
	LevelDebug: lipgloss.NewStyle().Faint(true),
	LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
	LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
	LevelError: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
}

// Logger writes leveled records. The zero value is not usable; use New or
// Discard.
type Logger struct {
	mu      sync.Mutex
	level   Level
	console *log.Logger
	file    *log.Logger
	closer  io.Closer
}

// New returns a logger printing records at or above level to console.
// A nil console discards console output.
func New(console io.Writer, level Level) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		level:   level,
		console: log.New(console, "", 0),
	}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, LevelError+1)
}

// OpenFile attaches a timestamped log file inside dir. Records written to
// the file carry full timestamps.
func (l *Logger) OpenFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure logs directory: %w", err)
	}

	filename := time.Now().Format("20060102-150405") + ".log"
	filePath := filepath.Join(dir, filename)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		_ = l.closer.Close()
	}
	l.file = log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	l.closer = file
	return filePath, nil
}

// SetConsole swaps the console writer. The progress UI uses this to keep
// log lines from tearing its frames.
func (l *Logger) SetConsole(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l.mu.Lock()
	l.console.SetOutput(w)
	l.mu.Unlock()
}

// Level returns the minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Enabled reports whether records at level are emitted.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.file = nil
	return err
}

func (l *Logger) Tracef(format string, v ...any) { l.logf(LevelTrace, format, v...) }
func (l *Logger) Debugf(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(LevelError, format, v...) }

// Printf logs at info level so a Logger can stand in for log.Logger.
func (l *Logger) Printf(format string, v ...any) { l.logf(LevelInfo, format, v...) }

// Block logs a multi-line payload, one record per line, under a heading.
func (l *Logger) Block(level Level, heading, text string) {
	if !l.Enabled(level) || text == "" {
		return
	}
	l.logf(level, "%s", heading)
	for _, line := range strings.Split(text, "\n") {
		l.logf(level, "  %s", strings.TrimRight(line, "\r"))
	}
}

func (l *Logger) logf(level Level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, v...)
	tag := fmt.Sprintf("[%s]", strings.ToUpper(level.String()))
	l.console.Printf("%s %s", tagStyles[level].Render(tag), msg)
	if l.file != nil {
		l.file.Printf("%-7s %s", tag, msg)
	}
}
