/*
Package logx wires the process-wide zerolog logger.

Development builds log human-readable console lines at debug level; everything else logs
JSON at info level. The package-level helpers take alternating key/value fields.
*/
package logx

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitGlobalLogger sets up the global logger. Console output goes to stderr, JSON to stdout.
func InitGlobalLogger(isDevelopment bool) {
	out := io.Writer(os.Stdout)
	if isDevelopment {
		out = os.Stderr
	}
	initLogger(out, isDevelopment)
}

func initLogger(out io.Writer, isDevelopment bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if isDevelopment {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	log.Logger = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns the global logger.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child logger tagged with component=name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// checkFields drops a field list with a dangling key; zerolog would panic on it.
func checkFields(level string, fields []any) []any {
	if len(fields)%2 == 0 {
		return fields
	}

	Logger().Warn().
		Int("fields_count", len(fields)).
		Str("log_level", level).
		Msgf("logx.%s got an odd number of fields %v, dropping them", level, fields)
	return nil
}

func Debug(msg string, fields ...any) {
	Logger().Debug().Fields(checkFields("Debug", fields)).CallerSkipFrame(1).Msg(msg)
}

func Info(msg string, fields ...any) {
	Logger().Info().Fields(checkFields("Info", fields)).CallerSkipFrame(1).Msg(msg)
}

func Warn(msg string, fields ...any) {
	Logger().Warn().Fields(checkFields("Warn", fields)).CallerSkipFrame(1).Msg(msg)
}

func Error(err error, msg string, fields ...any) {
	Logger().Error().Err(err).Fields(checkFields("Error", fields)).CallerSkipFrame(1).Msg(msg)
}

// Fatal logs and exits the process with status 1.
func Fatal(err error, msg string, fields ...any) {
	Logger().Fatal().Err(err).Fields(checkFields("Fatal", fields)).CallerSkipFrame(1).Msg(msg)
}
