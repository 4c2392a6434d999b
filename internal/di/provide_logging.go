package di

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ProvideLogger creates a new zerolog.Logger configured for the runtime
// environment: JSON when stdout is captured, console format with pretty
// printing when attached to a terminal. Components pick the logger up from
// the context via zerolog.Ctx, so applications should attach it with
// logger.WithContext.
func ProvideLogger() zerolog.Logger {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.New(os.Stdout).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}
