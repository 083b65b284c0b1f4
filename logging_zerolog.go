package ipcwire

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// zerologAdapter satisfies Logger by delegating to a zerolog.Logger. It
// exists for applications that already standardize on zerolog elsewhere
// and want this package's log lines to match, rather than living beside a
// second, slog-flavored stream.
type zerologAdapter struct {
	log zerolog.Logger
}

// NewZerologLogger builds a Logger backed by zerolog, writing to w. When
// pretty is true and w is a terminal (detected via go-isatty), output is a
// colorized console writer (via go-colorable, for correct ANSI handling on
// Windows consoles too); otherwise it's zerolog's compact JSON.
func NewZerologLogger(w io.Writer, pretty bool) Logger {
	if pretty {
		if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			w = zerolog.ConsoleWriter{Out: colorable.NewColorable(f)}
		}
	}
	return &zerologAdapter{log: zerolog.New(w).With().Timestamp().Logger()}
}

func withArgs(e *zerolog.Event, args []any) *zerolog.Event {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, args[i+1])
	}
	return e
}

func (z *zerologAdapter) Debug(msg string, args ...any) {
	withArgs(z.log.Debug(), args).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, args ...any) {
	withArgs(z.log.Info(), args).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, args ...any) {
	withArgs(z.log.Warn(), args).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, args ...any) {
	withArgs(z.log.Error(), args).Msg(msg)
}
