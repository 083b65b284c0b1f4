package ipcwire

import "time"

// defaults mirror the teacher's checkOptions style: generous, safe values
// applied wherever the caller didn't specify one.
const (
	defaultIdleTimeout = 30 * time.Second
)

// connOptions holds the configuration for a Connection.
type connOptions struct {
	logger      Logger
	idleTimeout time.Duration
	maxBlob     int
	onFault     func(err error)
}

func defaultConnOptions() connOptions {
	return connOptions{
		logger:      defaultLogger(),
		idleTimeout: defaultIdleTimeout,
		maxBlob:     defaultMaxBlobSize,
		onFault:     func(error) {},
	}
}

// ConnOption configures a Connection at construction time.
type ConnOption func(*connOptions)

// WithLogger overrides the Connection's logger. Default is a slog-backed
// Logger.
func WithLogger(l Logger) ConnOption {
	return func(o *connOptions) { o.logger = l }
}

// WithIdleTimeout sets the read/write deadline applied to the underlying
// socket around each frame. It is not a per-operation protocol timeout —
// spec.md §5 explicitly has none of those. The read deadline is reset
// before each wait for the next inbound frame, so a peer that sends nothing
// for d ends the Connection with a WireError, just as a stalled one does.
func WithIdleTimeout(d time.Duration) ConnOption {
	return func(o *connOptions) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithMaxBlobSize bounds how large an incoming length-prefixed blob or
// string this Connection will allocate for.
func WithMaxBlobSize(n int) ConnOption {
	return func(o *connOptions) {
		if n > 0 {
			o.maxBlob = n
		}
	}
}

// WithFaultHandler registers a callback invoked (in addition to the normal
// terminal-error handling) whenever the Connection tears itself down due to
// a WireError, Desync, or ProtocolError. Useful for metrics/logging hooks
// beyond what Logger already captures.
func WithFaultHandler(fn func(err error)) ConnOption {
	return func(o *connOptions) {
		if fn != nil {
			o.onFault = fn
		}
	}
}
