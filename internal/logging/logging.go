// Package logging builds the zerolog logger used for pipeline diagnostics.
// Diagnostic output goes to stderr; operator-facing progress lines are
// written by the runner directly and are not routed through here.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	return zerolog.New(cw).Level(level).With().Timestamp().Logger()
}
