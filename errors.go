package ipcwire

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a protocol-level failure.
type Kind int

const (
	// KindNotConnected is returned when an operation is issued against a
	// Connection that is not in the Open state.
	KindNotConnected Kind = iota
	// KindWireError covers short reads/writes and underlying socket faults.
	KindWireError
	// KindDesync covers a frame header sync-pattern mismatch, an unknown
	// message code, or a truncated body.
	KindDesync
	// KindProtocolError covers a syntactically valid frame arriving where
	// the state machine does not accept it.
	KindProtocolError
	// KindHandshakeRejected covers a peer topic mismatch or a server that
	// refused the topic.
	KindHandshakeRejected
)

func (k Kind) String() string {
	switch k {
	case KindNotConnected:
		return "not connected"
	case KindWireError:
		return "wire error"
	case KindDesync:
		return "desync"
	case KindProtocolError:
		return "protocol error"
	case KindHandshakeRejected:
		return "handshake rejected"
	default:
		return "unknown error kind"
	}
}

// Error is the concrete error type produced by this package's codec, frame,
// Connection and handshake paths. Those errors can be inspected with
// errors.As for their Kind, and unwrap to the underlying cause (if any) via
// errors.Unwrap. ResolveEndpoint's parse errors are plain errors, not *Error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ipcwire: %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("ipcwire: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrNotConnected) style checks against the Kind
// sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values usable with errors.Is for each Kind, carrying no cause or
// op of their own.
var (
	ErrNotConnected      = &Error{Kind: KindNotConnected}
	ErrWireError         = &Error{Kind: KindWireError}
	ErrDesync            = &Error{Kind: KindDesync}
	ErrProtocolError     = &Error{Kind: KindProtocolError}
	ErrHandshakeRejected = &Error{Kind: KindHandshakeRejected}
)

func newErr(op string, kind Kind, cause error) *Error {
	if cause == nil {
		return &Error{Op: op, Kind: kind}
	}
	return &Error{Op: op, Kind: kind, Err: errors.Wrap(cause, op)}
}

func wireErr(op string, cause error) *Error     { return newErr(op, KindWireError, cause) }
func desyncErr(op string, cause error) *Error   { return newErr(op, KindDesync, cause) }
func protocolErr(op string, cause error) *Error { return newErr(op, KindProtocolError, cause) }

// errBadSync and errUnknownCode are the two causes that collapse into a
// Desync at the frame layer: a header whose high bits don't match the
// sync pattern, and a header whose low byte names no known Code.
var (
	errBadSync     = errors.New("frame header sync pattern mismatch")
	errUnknownCode = errors.New("frame header names an unknown message code")

	// errUnexpectedReply is the cause wrapped into a ProtocolError when a
	// synchronous operation's reply is not one of its documented codes.
	errUnexpectedReply = errors.New("reply frame was not one of the documented codes for this operation")

	// errPeerDisconnected and errLocalDisconnect are plain control-flow
	// signals, not faults: they unwind the read loop without being
	// reported through the fault-handling / Fail-frame path.
	errPeerDisconnected = errors.New("peer sent disconnect")
	errLocalDisconnect  = errors.New("local disconnect")

	// errProtocolConnectAfterOpen is the cause wrapped into a ProtocolError
	// when a peer sends a second Connect frame on an already-Open
	// connection; the handshake is one-shot.
	errProtocolConnectAfterOpen = errors.New("connect frame received after handshake")

	// errUnsolicitedReply is the cause wrapped into a ProtocolError for a
	// RequestReply or Fail frame with no matching pending call.
	errUnsolicitedReply = errors.New("reply frame received with no matching pending call")
)
