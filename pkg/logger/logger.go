package logger

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the global logger.
type Config struct {
	Level       string
	Pretty      bool
	ServiceName string
}

var (
	global zerolog.Logger
	mu     sync.RWMutex
)

func init() {
	global = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// New builds a zerolog.Logger from cfg without touching the global one.
func New(cfg Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}

	l := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	if cfg.ServiceName != "" {
		l = l.With().Str("service", cfg.ServiceName).Logger()
	}
	return l
}

// Init replaces the global logger and routes the stdlib log package into it.
func Init(cfg Config) {
	l := New(cfg)

	mu.Lock()
	global = l
	mu.Unlock()

	stdlog.SetFlags(0)
	stdlog.SetOutput(l.With().Str("source", "stdlog").Logger())
}

// L returns the global logger.
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := global
	return &l
}

// SetOutput is used by tests to capture log output.
func SetOutput(w io.Writer) {
	mu.Lock()
	global = global.Output(w)
	mu.Unlock()
}

func Info(format string, v ...interface{}) {
	L().Info().Msg(fmt.Sprintf(format, v...))
}

func Warn(format string, v ...interface{}) {
	L().Warn().Msg(fmt.Sprintf(format, v...))
}

func Error(format string, v ...interface{}) {
	L().Error().Msg(fmt.Sprintf(format, v...))
}

func Debug(format string, v ...interface{}) {
	L().Debug().Msg(fmt.Sprintf(format, v...))
}

// WithUser returns a child logger tagged with the acting user.
func WithUser(userID string) zerolog.Logger {
	return L().With().Str("user_id", userID).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
