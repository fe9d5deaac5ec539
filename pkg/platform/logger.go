// Package platform holds small cross-cutting helpers: environment
// configuration and logger setup.
package platform

import (
	"os"

	"github.com/rs/zerolog"
)

// InitLogger configures a console logger on stderr at the given level.
// Unrecognized levels fall back to info.
func InitLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
