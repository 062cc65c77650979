// Package logging provides the real-time console logger used by transport
// providers and endpoints. Providers log lifecycle events (connect,
// disconnect, delivery failures); message payloads are never logged.
package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// Level represents log severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// levelPriority maps levels to numeric priority for filtering.
var levelPriority = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Logger writes leveled lines with an optional component and fixed fields.
type Logger struct {
	mu        sync.Mutex
	output    io.Writer
	minLevel  Level
	component string
	fields    map[string]interface{}
}

// New creates a new Logger writing INFO and above to stdout.
func New() *Logger {
	return &Logger{
		output:   os.Stdout,
		minLevel: LevelInfo,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{
		output:   io.Discard,
		minLevel: LevelError,
	}
}

// WithComponent returns a new logger with the given component name.
func (l *Logger) WithComponent(component string) *Logger {
	c := l.clone()
	c.component = component
	return c
}

// WithField returns a new logger that adds key=value to every line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	c := l.clone()
	c.fields[key] = value
	return c
}

func (l *Logger) clone() *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{
		output:    l.output,
		minLevel:  l.minLevel,
		component: l.component,
		fields:    fields,
	}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// SetOutput sets the output writer (default: stdout).
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	l.output = w
	l.mu.Unlock()
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	l.log(LevelDebug, msg, fields...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	l.log(LevelInfo, msg, fields...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	l.log(LevelWarn, msg, fields...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	l.log(LevelError, msg, fields...)
}

// formatFields formats fields as key=value pairs sorted by key.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return " " + strings.Join(parts, " ")
}

// log writes a log entry in traditional format: LEVEL TIMESTAMP [component] message key=value ...
func (l *Logger) log(level Level, msg string, fields ...map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelPriority[level] < levelPriority[l.minLevel] {
		return
	}

	merged := make(map[string]interface{}, len(l.fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}

	timestamp := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	fieldStr := formatFields(merged)

	var line string
	if l.component != "" {
		line = fmt.Sprintf("%-5s %s [%s] %s%s\n", level, timestamp, l.component, msg, fieldStr)
	} else {
		line = fmt.Sprintf("%-5s %s %s%s\n", level, timestamp, msg, fieldStr)
	}

	l.output.Write([]byte(line))
}

// --- Transport event helpers ---

// Connected logs a successful connect.
func (l *Logger) Connected(provider, target string) {
	l.Info("connected", map[string]interface{}{
		"provider": provider,
		"target":   target,
	})
}

// Disconnected logs the end of a connection. Solicited is false when the
// peer or the network closed the channel.
func (l *Logger) Disconnected(provider, target string, solicited bool) {
	fields := map[string]interface{}{
		"provider":  provider,
		"target":    target,
		"solicited": solicited,
	}
	if solicited {
		l.Info("disconnected", fields)
	} else {
		l.Warn("disconnected", fields)
	}
}

// ConnectFailed logs a failed connect attempt.
func (l *Logger) ConnectFailed(provider, target string, err error) {
	l.Error("connect_failed", map[string]interface{}{
		"provider": provider,
		"target":   target,
		"error":    errorValue(err),
	})
}

// SendFailed logs an outbound message that could not be written.
func (l *Logger) SendFailed(provider string, err error) {
	l.Warn("send_failed", map[string]interface{}{
		"provider": provider,
		"error":    errorValue(err),
	})
}

// DeliveryFailed logs an inbound message that could not be delivered.
func (l *Logger) DeliveryFailed(provider string, err error) {
	l.Warn("delivery_failed", map[string]interface{}{
		"provider": provider,
		"error":    errorValue(err),
	})
}

// errorValue renders err for a log field. Errors that marshal themselves
// (structured provider errors) are logged as their JSON form.
func errorValue(err error) string {
	if m, ok := err.(json.Marshaler); ok {
		if b, mErr := m.MarshalJSON(); mErr == nil {
			return string(b)
		}
	}
	return err.Error()
}
