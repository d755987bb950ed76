package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// The first stack line is "goroutine 123 [running]:", 32 bytes hold it.
	stackBufSize       = 32
	goroutinePrefixLen = len("goroutine ")
	unknownGoroutine   = "unknown"

	// FormatConsole writes colored human readable lines.
	FormatConsole = "console"
	// FormatJSON writes one JSON object per line.
	FormatJSON = "json"
)

var (
	Logger    zerolog.Logger
	stackPool = sync.Pool{New: func() interface{} { return make([]byte, stackBufSize) }}
)

func init() {
	Logger = build(os.Stderr, zerolog.InfoLevel, FormatConsole)
	log.Logger = Logger
}

// goroutineID parses the current goroutine id from the top stack line.
func goroutineID() string {
	buf, ok := stackPool.Get().([]byte)
	if !ok {
		return unknownGoroutine
	}
	defer stackPool.Put(buf) //nolint:staticcheck // buf is a slice, this is the correct usage

	n := runtime.Stack(buf, false)
	if n <= goroutinePrefixLen {
		return unknownGoroutine
	}

	end := goroutinePrefixLen
	for end < n && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == goroutinePrefixLen {
		return unknownGoroutine
	}

	return string(buf[goroutinePrefixLen:end])
}

func build(out io.Writer, level zerolog.Level, format string) zerolog.Logger {
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger().
		Hook(zerolog.HookFunc(func(e *zerolog.Event, _ zerolog.Level, _ string) {
			e.Str("goid", goroutineID())
		}))
}

// Configure replaces the package logger, writing to stderr.
func Configure(level, format string) error {
	return ConfigureOutput(os.Stderr, level, format)
}

// ConfigureOutput replaces the package logger with one writing to out.
func ConfigureOutput(out io.Writer, level, format string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}

	switch format {
	case "", FormatConsole, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	Logger = build(out, parsed, format)
	log.Logger = Logger
	return nil
}

// ParseLevel accepts zerolog level names. An empty string means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return parsed, nil
}

// Info logs an info message with goroutine ID.
func Info() *zerolog.Event {
	return Logger.Info()
}

// Error logs an error message with goroutine ID.
func Error() *zerolog.Event {
	return Logger.Error()
}

// Warn logs a warning message with goroutine ID.
func Warn() *zerolog.Event {
	return Logger.Warn()
}

// Debug logs a debug message with goroutine ID.
func Debug() *zerolog.Event {
	return Logger.Debug()
}

// Fatal logs a fatal message with goroutine ID and exits.
func Fatal() *zerolog.Event {
	return Logger.Fatal()
}

// SetDebugMode switches the logger to debug level.
func SetDebugMode() {
	Logger = Logger.Level(zerolog.DebugLevel)
	log.Logger = Logger
}
