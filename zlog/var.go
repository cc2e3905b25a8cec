package zlog

import (
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh/terminal"
)

var (
	// DefaultZLogger is the default zerolog.Logger used by tap packages.
	// Logs go to stderr since stdout carries the message stream.
	// If os.Stderr is a terminal then ConsoleWriter will be used for prettier output.
	// You can override this to whatever you want to log to.
	DefaultZLogger = zerolog.New(os.Stderr).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
)

func init() {
	if terminal.IsTerminal(int(os.Stderr.Fd())) {
		DefaultZLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.InfoLevel).
			With().
			Timestamp().
			Logger()
	}
}
