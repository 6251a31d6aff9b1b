package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New builds the process logger: JSON lines in production, a console writer
// everywhere else.
func New(production bool, level string) zerolog.Logger {
	return newWithWriter(os.Stdout, production, level)
}

func newWithWriter(out io.Writer, production bool, level string) zerolog.Logger {
	if !production {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "pharmacy").Logger()
}
