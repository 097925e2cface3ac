// Package logging builds the zerolog.Logger handed to the proxy.
//
// Verbosity is a value on the returned logger, not process state: nothing here
// touches zerolog's global level.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// LevelForVerbosity maps a -v count to a level: session failures are always
// logged, -v adds session lifecycle, -vv relay EOFs and byte totals.
func LevelForVerbosity(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.WarnLevel
	case v == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

// LogReads reports whether -vvv asked for a debug event per relayed read.
// zerolog's global floor hides TraceLevel, so this is a separate switch
// rather than a lower level.
func LogReads(v int) bool {
	return v >= 3
}

// New returns a timestamped logger writing to w.
func New(w io.Writer, verbosity int, format string) (zerolog.Logger, error) {
	switch format {
	case FormatAuto, "":
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}

	return zerolog.New(w).Level(LevelForVerbosity(verbosity)).With().Timestamp().Logger(), nil
}
