package ipcwire

import (
	"net"

	"github.com/pkg/errors"
)

// MakeConnection implements spec.md §4.6: it resolves (host, service),
// dials it, performs the outbound half of the handshake, and — on success —
// returns an Open Connection that is not yet being driven by Run (the
// caller starts that in its own goroutine once it decides the Connection's
// context). A nil, nil-error return never happens: every path either
// returns a usable Connection or a non-nil error.
func MakeConnection(host, service, topic string, newHandler ClientHandlerFunc, opts ...ConnOption) (*Connection, error) {
	ep, err := ResolveEndpoint(host, service)
	if err != nil {
		return nil, err
	}

	nc, err := net.Dial(ep.Network, ep.Address)
	if err != nil {
		return nil, wireErr("dial", err)
	}

	codec := NewCodec(nc)

	if err := WriteFrame(codec, &ConnectFrame{Topic: topic}); err != nil {
		_ = nc.Close()
		return nil, err
	}

	frame, err := ReadFrame(codec, nil)
	if err != nil {
		_ = nc.Close()
		return nil, err
	}

	switch fr := frame.(type) {
	case *ConnectFrame:
		if fr.Topic != topic {
			_ = nc.Close()
			return nil, newErr("MakeConnection", KindHandshakeRejected, nil)
		}
	case *FailFrame:
		_ = nc.Close()
		return nil, newErr("MakeConnection", KindHandshakeRejected, errors.New(fr.Reason))
	default:
		_ = nc.Close()
		return nil, protocolErr("MakeConnection", errUnexpectedReply)
	}

	conn := newConnection(nc, topic, newHandler(), opts...)
	conn.state.Store(int32(StateOpen))
	return conn, nil
}
