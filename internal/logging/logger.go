package logging

// Leveled logging for cipmsg

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

var levelNames = map[string]LogLevel{
	"silent":  LogLevelSilent,
	"error":   LogLevelError,
	"info":    LogLevelInfo,
	"verbose": LogLevelVerbose,
	"debug":   LogLevelDebug,
}

// ParseLevel maps a level name to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return LogLevelSilent, fmt.Errorf("unknown log level %q (want silent, error, info, verbose or debug)", name)
	}
	return level, nil
}

func (l LogLevel) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Logger writes leveled messages. Errors go to stderr; info and below reach
// stdout only at verbose or debug level. A log file, when set, receives
// every message that passes the level. A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	level   LogLevel
	file    *os.File
	fileLog *log.Logger
	stdout  *log.Logger
	stderr  *log.Logger
}

// NewLogger creates a new logger
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	l := NewWriterLogger(level, os.Stdout, os.Stderr)

	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		l.fileLog = log.New(file, "", log.LstdFlags)
	}

	return l, nil
}

// NewWriterLogger creates a logger over arbitrary writers.
func NewWriterLogger(level LogLevel, stdout, stderr io.Writer) *Logger {
	return &Logger{
		level:  level,
		stdout: log.New(stdout, "", 0),
		stderr: log.New(stderr, "", 0),
	}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file, l.fileLog = nil, nil
		return err
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.logf(LogLevelError, "ERROR: ", format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.logf(LogLevelInfo, "INFO: ", format, v...)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	l.logf(LogLevelVerbose, "VERBOSE: ", format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.logf(LogLevelDebug, "DEBUG: ", format, v...)
}

func (l *Logger) logf(level LogLevel, prefix, format string, v ...interface{}) {
	if !l.Enabled(level) {
		return
	}
	l.write(prefix+fmt.Sprintf(format, v...), level == LogLevelError)
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level LogLevel) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return level != LogLevelSilent && l.level >= level
}

// write writes a message to the appropriate outputs
func (l *Logger) write(msg string, isError bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fileLog != nil {
		l.fileLog.Println(msg)
	}

	if isError {
		l.stderr.Println(msg)
	} else if l.level >= LogLevelVerbose {
		l.stdout.Println(msg)
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	if l == nil {
		return LogLevelSilent
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogExchange logs one request/reply exchange. Successful exchanges are
// verbose; failures are info.
func (l *Logger) LogExchange(operation, target, command string, success bool, rttMs float64, status uint8, err error) {
	if l == nil {
		return
	}
	statusStr := "SUCCESS"
	if !success {
		statusStr = "FAILED"
	}

	var errStr string
	if err != nil {
		errStr = fmt.Sprintf(" - error: %v", err)
	}

	msg := fmt.Sprintf("%s %s on %s (command: %s, status: 0x%02X, RTT: %.3fms)%s",
		statusStr, operation, target, command, status, rttMs, errStr)

	if success {
		l.Verbose("%s", msg)
	} else {
		l.Info("%s", msg)
	}
}

// LogHex logs data as space-separated hex bytes at debug level.
func (l *Logger) LogHex(label string, data []byte) {
	if !l.Enabled(LogLevelDebug) {
		return
	}
	l.Debug("%s (%d bytes): % x", label, len(data), data)
}
