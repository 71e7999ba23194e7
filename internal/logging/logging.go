package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// ParseLevel maps a config value onto a Level. Unknown values mean Info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

type Field struct {
	Key   string
	Value any
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

// sink serializes whole lines onto one writer; every derived logger shares it.
type sink struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

func (s *sink) write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.out.Write(line)
}

type lineLogger struct {
	sink   *sink
	min    Level
	prefix []byte
}

func New(out io.Writer, level Level) Logger {
	if out == nil {
		out = os.Stderr
	}
	return &lineLogger{sink: &sink{out: out, now: time.Now}, min: level}
}

// NewFile appends to path, creating its directory. The returned closer owns
// the file handle.
func NewFile(path string, level Level) (Logger, io.Closer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil, errors.New("log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, err
	}
	return New(file, level), file, nil
}

type nopLogger struct{}

func Nop() Logger { return nopLogger{} }

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) With(...Field) Logger   { return nopLogger{} }
func (nopLogger) Enabled(Level) bool     { return false }

// Component tags every line with the emitting subsystem.
func Component(logger Logger, name string) Logger {
	if logger == nil {
		return Nop()
	}
	return logger.With(F("component", name))
}

func (l *lineLogger) Enabled(level Level) bool {
	return level >= l.min
}

// With pre-renders fields so derived loggers pay for them once.
func (l *lineLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	prefix := append([]byte(nil), l.prefix...)
	return &lineLogger{sink: l.sink, min: l.min, prefix: appendFields(prefix, fields)}
}

func (l *lineLogger) Debug(msg string, fields ...Field) { l.emit(Debug, msg, fields) }
func (l *lineLogger) Info(msg string, fields ...Field)  { l.emit(Info, msg, fields) }
func (l *lineLogger) Warn(msg string, fields ...Field)  { l.emit(Warn, msg, fields) }
func (l *lineLogger) Error(msg string, fields ...Field) { l.emit(Error, msg, fields) }

func (l *lineLogger) emit(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	line := make([]byte, 0, 128+len(l.prefix))
	line = append(line, "ts="...)
	line = l.sink.now().UTC().AppendFormat(line, time.RFC3339Nano)
	line = append(line, " level="...)
	line = append(line, level.String()...)
	line = append(line, " msg="...)
	line = appendValue(line, msg)
	line = append(line, l.prefix...)
	line = appendFields(line, fields)
	line = append(line, '\n')
	l.sink.write(line)
}

func appendFields(dst []byte, fields []Field) []byte {
	for _, f := range fields {
		dst = append(dst, ' ')
		dst = append(dst, cleanKey(f.Key)...)
		dst = append(dst, '=')
		dst = appendValue(dst, render(f.Value))
	}
	return dst
}

func cleanKey(key string) string {
	if key == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == '=' || r == '"' {
			return '_'
		}
		return r
	}, key)
}

func render(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case error:
		return v.Error()
	case time.Duration:
		return v.String()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	case []string:
		return strings.Join(v, ",")
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func appendValue(dst []byte, value string) []byte {
	if value == "" {
		return append(dst, `""`...)
	}
	if strings.ContainsAny(value, " \t\n\r\"=") {
		return strconv.AppendQuote(dst, value)
	}
	return append(dst, value...)
}

func NewRequestID() string {
	return uuid.NewString()
}
