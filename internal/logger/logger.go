// Package logger provides the daemon's leveled logger. Init selects a
// minimum level and an output format: json emits one object per line for log
// shippers, text stays human-readable.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	DebugLevel: "debug",
	InfoLevel:  "info",
	WarnLevel:  "warn",
	ErrorLevel: "error",
}

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Logger writes leveled lines in json or text form. A nil Logger drops
// everything, so call sites never guard.
type Logger struct {
	mu    sync.Mutex
	level Level
	json  bool
	out   io.Writer
	now   func() time.Time
}

// New builds a logger writing to out. Any format other than "text" means json.
func New(level Level, format string, out io.Writer) *Logger {
	return &Logger{
		level: level,
		json:  strings.ToLower(format) != "text",
		out:   out,
		now:   time.Now,
	}
}

var defaultLogger *Logger

// Init configures the package-level logger from config strings.
func Init(level, format string) {
	defaultLogger = New(ParseLevel(level), format, os.Stderr)
}

func (l *Logger) log(lv Level, format string, args ...interface{}) {
	if l == nil || lv < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	ts := l.now().UTC().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.json {
		line, err := json.Marshal(map[string]string{
			"ts":    ts,
			"level": levelNames[lv],
			"msg":   msg,
		})
		if err == nil {
			fmt.Fprintf(l.out, "%s\n", line)
		}
		return
	}
	fmt.Fprintf(l.out, "%s [%s] %s\n", ts, strings.ToUpper(levelNames[lv]), msg)
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(format string, args ...interface{}) { l.log(DebugLevel, format, args...) }

// Info logs at InfoLevel.
func (l *Logger) Info(format string, args ...interface{}) { l.log(InfoLevel, format, args...) }

// Warn logs at WarnLevel.
func (l *Logger) Warn(format string, args ...interface{}) { l.log(WarnLevel, format, args...) }

// Error logs at ErrorLevel.
func (l *Logger) Error(format string, args ...interface{}) { l.log(ErrorLevel, format, args...) }

// Debug logs a message through the package logger.
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }

// Info logs a message through the package logger.
func Info(format string, args ...interface{}) { defaultLogger.Info(format, args...) }

// Warn logs a message through the package logger.
func Warn(format string, args ...interface{}) { defaultLogger.Warn(format, args...) }

// Error logs a message through the package logger.
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }

// Fatal logs at ErrorLevel and exits. It works before Init so startup
// failures are never silent.
func Fatal(format string, args ...interface{}) {
	if defaultLogger == nil {
		log.Fatalf(format, args...)
	}
	defaultLogger.Error(format, args...)
	os.Exit(1)
}
