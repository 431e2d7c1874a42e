// Package log provides a thin, opinionated wrapper around zerolog that every
// other package in this module uses for structured logging. It mirrors the
// small surface the rest of the codebase expects: leveled printf-style
// helpers (Infof, Debugf, ...), structured key/value helpers (Infow, Warnw,
// ...) and a global Init used once at process startup.
package log

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Level name constants, used both by Init and by callers that want to
// compare against the currently configured level (e.g. to skip expensive
// request-body logging when not in debug mode).
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
	LogLevelFatal = "fatal"
)

// panicOnInvalidChars, when true, makes the logger panic (recoverable by the
// caller) if a formatted message contains invalid UTF-8. It exists to catch
// accidental binary blobs being logged as strings; it is off by default and
// only used in tests.
var panicOnInvalidChars = false

// logTestWriter/logTestWriterName let tests redirect output without going
// through a real file descriptor.
var (
	logTestWriter     io.Writer = os.Stderr
	logTestWriterName           = "test"
)

var (
	logger       zerolog.Logger
	currentLevel = LogLevelInfo
)

func init() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
}

// Init configures the global logger. level is one of the LogLevel*
// constants. output is either "stdout", "stderr", the sentinel test writer
// name, or a file path to append to. errorWriter, when non-nil, receives a
// copy of every Error/Fatal record in addition to output.
func Init(level, output string, errorWriter io.Writer) {
	var w io.Writer
	switch output {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	case logTestWriterName:
		w = logTestWriter
	default:
		f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log: cannot open %q: %v\n", output, err)
			w = os.Stderr
		} else {
			w = f
		}
	}

	console := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	if errorWriter != nil {
		w = zerolog.MultiLevelWriter(console, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{Out: errorWriter, TimeFormat: "15:04:05"}},
			Level:  zerolog.ErrorLevel,
		})
		logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(console).With().Timestamp().Logger()
	}

	zlvl, err := zerolog.ParseLevel(level)
	if err != nil {
		zlvl = zerolog.InfoLevel
		level = LogLevelInfo
	}
	zerolog.SetGlobalLevel(zlvl)
	currentLevel = level
}

// Level returns the name of the currently configured log level.
func Level() string {
	return currentLevel
}

func checkValid(format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if panicOnInvalidChars && !utf8.ValidString(msg) {
		panic("log: message contains invalid UTF-8: " + strconv.Quote(msg))
	}
	return msg
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return ""
	}
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		file = file[idx+1:]
	}
	return file + ":" + strconv.Itoa(line)
}

func withCaller(e *zerolog.Event) *zerolog.Event {
	if c := caller(); c != "" {
		return e.Str("caller", c)
	}
	return e
}

// Debugf logs a printf-style message at debug level.
func Debugf(format string, args ...any) {
	withCaller(logger.Debug()).Msg(checkValid(format, args...))
}

// Infof logs a printf-style message at info level.
func Infof(format string, args ...any) {
	withCaller(logger.Info()).Msg(checkValid(format, args...))
}

// Warnf logs a printf-style message at warn level.
func Warnf(format string, args ...any) {
	withCaller(logger.Warn()).Msg(checkValid(format, args...))
}

// Errorf logs a printf-style message at error level.
func Errorf(format string, args ...any) {
	withCaller(logger.Error()).Msg(checkValid(format, args...))
}

// Fatalf logs a printf-style message at fatal level and terminates the process.
func Fatalf(format string, args ...any) {
	withCaller(logger.Fatal()).Msg(checkValid(format, args...))
}

// Info logs args joined with a space at info level.
func Info(args ...any) {
	withCaller(logger.Info()).Msg(fmt.Sprint(args...))
}

// Warn logs args joined with a space at warn level.
func Warn(args ...any) {
	withCaller(logger.Warn()).Msg(fmt.Sprint(args...))
}

// Error logs args joined with a space at error level.
func Error(args ...any) {
	withCaller(logger.Error()).Msg(fmt.Sprint(args...))
}

// Print logs args at info level, mirroring the stdlib log package.
func Print(args ...any) {
	Info(args...)
}

// Printf logs a printf-style message at info level, mirroring the stdlib log package.
func Printf(format string, args ...any) {
	Infof(format, args...)
}

// Println logs args at info level, mirroring the stdlib log package.
func Println(args ...any) {
	Info(args...)
}

func withFields(e *zerolog.Event, keyvals ...any) *zerolog.Event {
	for i := 0; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i])
		}
		e = e.Interface(key, keyvals[i+1])
	}
	return withCaller(e)
}

// Debugw logs msg at debug level with the given alternating key/value pairs.
func Debugw(msg string, keyvals ...any) {
	withFields(logger.Debug(), keyvals...).Msg(checkValid("%s", msg))
}

// Infow logs msg at info level with the given alternating key/value pairs.
func Infow(msg string, keyvals ...any) {
	withFields(logger.Info(), keyvals...).Msg(checkValid("%s", msg))
}

// Warnw logs msg at warn level with the given alternating key/value pairs.
func Warnw(msg string, keyvals ...any) {
	withFields(logger.Warn(), keyvals...).Msg(checkValid("%s", msg))
}

// Errorw logs msg at error level with the given alternating key/value pairs.
func Errorw(msg string, keyvals ...any) {
	withFields(logger.Error(), keyvals...).Msg(checkValid("%s", msg))
}

// New returns a named child logger that prefixes every record with
// component=name, useful for per-descriptor verification logging.
func New(component string) Logger {
	return Logger{component: component}
}

// Logger is a component-scoped logger returned by New.
type Logger struct {
	component string
}

func (l Logger) Debugw(msg string, keyvals ...any) {
	Debugw(msg, append([]any{"component", l.component}, keyvals...)...)
}

func (l Logger) Infow(msg string, keyvals ...any) {
	Infow(msg, append([]any{"component", l.component}, keyvals...)...)
}

func (l Logger) Warnw(msg string, keyvals ...any) {
	Warnw(msg, append([]any{"component", l.component}, keyvals...)...)
}

func (l Logger) Errorw(msg string, keyvals ...any) {
	Errorw(msg, append([]any{"component", l.component}, keyvals...)...)
}
