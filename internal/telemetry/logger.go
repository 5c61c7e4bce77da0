package telemetry

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var logger zerolog.Logger

// Init configures the global logger. Console output keeps a compact
// bracketed-timestamp register ("[2026-02-21 5:10:39 PM MST] message"),
// colorized only when stderr is an attached terminal.
func Init(level zerolog.Level) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	writer := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		NoColor:    !color,
		TimeFormat: "2006-01-02 3:04:05 PM MST",
	}
	writer.FormatTimestamp = func(i any) string {
		return fmt.Sprintf("[%v]", i)
	}
	writer.FormatLevel = func(i any) string {
		lvl, _ := i.(string)
		switch strings.ToLower(lvl) {
		case "error", "fatal", "panic":
			return "ERROR:"
		case "warn":
			return "WARN:"
		default:
			return ""
		}
	}
	writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}

	zerolog.SetGlobalLevel(level)
	logger = zerolog.New(writer).With().Timestamp().Logger()
}

// L returns the global logger.
func L() *zerolog.Logger { return &logger }

func Infof(format string, args ...any)  { L().Info().Msg(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { L().Warn().Msg(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { L().Error().Msg(fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { L().Debug().Msg(fmt.Sprintf(format, args...)) }
func Plainf(format string, args ...any) { fmt.Fprintf(os.Stderr, format+"\n", args...) }

// ParseLogLevel converts a string level name to zerolog.Level.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func init() {
	Init(zerolog.InfoLevel)
}
