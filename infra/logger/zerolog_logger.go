package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	levelMu sync.RWMutex
	level   = zerolog.InfoLevel
)

// SetLevel changes the minimum level of loggers created afterwards. Unknown
// names leave the level unchanged and return false.
func SetLevel(name string) bool {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" {
		return false
	}
	levelMu.Lock()
	level = lvl
	levelMu.Unlock()
	return true
}

func currentLevel() zerolog.Level {
	if env := os.Getenv("FR_LOG_LEVEL"); env != "" {
		if lvl, err := zerolog.ParseLevel(strings.ToLower(env)); err == nil {
			return lvl
		}
	}
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level
}

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger using the APP_ENV environment variable
// to determine the output format. All logs include the provided component field.
// Logs go to stderr so that CLI output on stdout stays machine readable.
func NewZerologLogger(component string) Logger {
	var w io.Writer = os.Stderr
	if strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewZerologLoggerWithWriter(component, w)
}

// NewZerologLoggerWithWriter writes JSON lines (or whatever w renders) to w.
func NewZerologLoggerWithWriter(component string, w io.Writer) Logger {
	z := zerolog.New(w).Level(currentLevel()).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
