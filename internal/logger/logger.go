package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func New() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("app", "clickwar").
		Caller().
		Logger()

	return logger.Level(zerolog.DebugLevel)
}

// ParseLevel falls back to info for unknown names.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// ApplyLevel sets the process-wide minimum level once configuration is known.
func ApplyLevel(name string, logger zerolog.Logger) {
	level := ParseLevel(name)
	zerolog.SetGlobalLevel(level)
	logger.Info().Str("level", level.String()).Msg("log level applied")
}

var Module = fx.Provide(New)
