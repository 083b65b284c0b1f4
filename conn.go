package ipcwire

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is where a Connection sits in its lifecycle.
type State int32

const (
	StateHandshaking State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// pendingWait is the rendezvous a synchronous operation (Request,
// StartAdvise, StopAdvise) sets up before writing its request frame: the
// single dispatch-loop goroutine hands the matching reply frame back
// through ch instead of routing it as an inbound message.
type pendingWait struct {
	codes []Code
	ch    chan Frame
}

// Connection is a per-socket instance of the protocol state machine. It is
// symmetric: the same type and operations serve both the client and server
// side of a topic, since either side may issue any of the five operation
// families. Every public operation that requires Open returns
// *Error{Kind: KindNotConnected} otherwise.
//
// A Connection owns its socket exclusively from handshake success until
// teardown. Exactly one goroutine (the one running inside Run) ever
// performs a socket read; callers issuing Request/StartAdvise/StopAdvise
// block on a rendezvous channel fed by that goroutine rather than reading
// the socket themselves, which is the correctness-preserving refinement
// spec.md §9 permits in place of literal per-call inline reads, and avoids
// a race between an inline caller read and the dispatch loop's own read for
// who gets to consume the reply frame.
type Connection struct {
	ID    uuid.UUID
	topic string

	nc    net.Conn
	codec *Codec

	handler Handler
	logger  Logger
	opts    connOptions

	state atomic.Int32

	writeGate gate
	readGate  gate
	requestMu sync.Mutex

	pending atomic.Pointer[pendingWait]

	closeOnce sync.Once
	cancel    context.CancelFunc
	stopped   chan struct{}
}

func newConnection(nc net.Conn, topic string, handler Handler, opts ...ConnOption) *Connection {
	o := defaultConnOptions()
	for _, opt := range opts {
		opt(&o)
	}
	codec := NewCodec(nc)
	codec.SetMaxBlobSize(o.maxBlob)

	id := uuid.New()
	c := &Connection{
		ID:      id,
		topic:   topic,
		nc:      nc,
		codec:   codec,
		handler: handler,
		logger:  withConn(o.logger, id, topic),
		opts:    o,
		stopped: make(chan struct{}),
	}
	c.state.Store(int32(StateHandshaking))
	return c
}

// State reports the Connection's current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Topic returns the topic this Connection was opened under.
func (c *Connection) Topic() string { return c.topic }

// Addr returns the remote address of the underlying socket.
func (c *Connection) Addr() net.Addr { return c.nc.RemoteAddr() }

func (c *Connection) isOpen() bool { return c.State() == StateOpen }

func (c *Connection) notConnected(op string) error {
	return &Error{Op: op, Kind: KindNotConnected}
}

// Run drives the inbound dispatch loop until the connection closes locally,
// the peer disconnects, or an unrecoverable fault occurs. It returns nil
// for every orderly shutdown (local or peer Disconnect, context
// cancellation) and the triggering error for a fault. Callers — Server and
// Client — are expected to call Run in its own goroutine once the
// connection has reached StateOpen.
func (c *Connection) Run(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(gctx) })
	err := g.Wait()
	if ctx.Err() != nil {
		// Disconnect (via c.cancel) or the caller canceled ctx; the read
		// error that then unblocked readLoop is a consequence, not a fault.
		err = ctx.Err()
	}

	c.teardown(err)

	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, errLocalDisconnect),
		errors.Is(err, errPeerDisconnected):
		return nil
	default:
		return err
	}
}

func (c *Connection) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if c.opts.idleTimeout > 0 {
			_ = c.nc.SetReadDeadline(time.Now().Add(c.opts.idleTimeout))
		}

		c.readGate.Lock()
		frame, err := ReadFrame(c.codec, c.handler.GetBufferAtLeast)
		c.readGate.Unlock()
		if err != nil {
			return err
		}

		if err := c.dispatch(frame); err != nil {
			return err
		}
	}
}

func (c *Connection) writeFrame(f Frame) error {
	c.writeGate.Lock()
	defer c.writeGate.Unlock()

	if c.opts.idleTimeout > 0 {
		_ = c.nc.SetWriteDeadline(time.Now().Add(c.opts.idleTimeout))
	}
	return WriteFrame(c.codec, f)
}

func (c *Connection) awaitReply(codes ...Code) *pendingWait {
	pw := &pendingWait{codes: codes, ch: make(chan Frame, 1)}
	c.pending.Store(pw)
	return pw
}

func (c *Connection) clearPending() { c.pending.Store(nil) }

// takePending hands f to an in-flight synchronous call's rendezvous
// channel if f's code is one it's waiting on, and reports whether it did.
func (c *Connection) takePending(f Frame) bool {
	pw := c.pending.Load()
	if pw == nil {
		return false
	}
	for _, code := range pw.codes {
		if f.Code() == code {
			select {
			case pw.ch <- f:
			default:
			}
			return true
		}
	}
	return false
}

func (c *Connection) waitReply(pw *pendingWait) (Frame, error) {
	select {
	case f := <-pw.ch:
		return f, nil
	case <-c.stopped:
		return nil, c.notConnected("wait-reply")
	}
}

// Execute sends a fire-and-forget command frame: no reply is expected.
func (c *Connection) Execute(data []byte, format Format) error {
	if !c.isOpen() {
		return c.notConnected("Execute")
	}
	return c.writeFrame(&ExecuteFrame{Format: format, Data: data})
}

// Request asks the peer for item's value in the given format and blocks
// for the matching RequestReply. A Fail reply returns a nil slice with no
// error — it reports the peer's refusal, not a transport fault.
func (c *Connection) Request(item string, format Format) ([]byte, error) {
	if !c.isOpen() {
		return nil, c.notConnected("Request")
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	pw := c.awaitReply(CodeRequestReply, CodeFail)
	defer c.clearPending()

	if err := c.writeFrame(&RequestFrame{Format: format, Item: item}); err != nil {
		return nil, err
	}

	reply, err := c.waitReply(pw)
	if err != nil {
		return nil, err
	}
	switch r := reply.(type) {
	case *RequestReplyFrame:
		return r.Data, nil
	case *FailFrame:
		return nil, nil
	default:
		return nil, protocolErr("Request", errUnexpectedReply)
	}
}

// Poke sends a fire-and-forget update to item.
func (c *Connection) Poke(item string, data []byte, format Format) error {
	if !c.isOpen() {
		return c.notConnected("Poke")
	}
	return c.writeFrame(&PokeFrame{Format: format, Item: item, Data: data})
}

// StartAdvise subscribes to item, blocking for the peer's echoed
// confirmation. It reports true iff the peer confirmed; a Fail reply
// yields false with no error.
func (c *Connection) StartAdvise(item string) (bool, error) {
	return c.adviseHandshake(CodeAdviseStart, &AdviseStartFrame{Item: item})
}

// StopAdvise unsubscribes from item, symmetric to StartAdvise.
func (c *Connection) StopAdvise(item string) (bool, error) {
	return c.adviseHandshake(CodeAdviseStop, &AdviseStopFrame{Item: item})
}

func (c *Connection) adviseHandshake(echoCode Code, req Frame) (bool, error) {
	op := echoCode.String()
	if !c.isOpen() {
		return false, c.notConnected(op)
	}

	c.requestMu.Lock()
	defer c.requestMu.Unlock()

	pw := c.awaitReply(echoCode, CodeFail)
	defer c.clearPending()

	if err := c.writeFrame(req); err != nil {
		return false, err
	}

	reply, err := c.waitReply(pw)
	if err != nil {
		return false, err
	}
	switch reply.(type) {
	case *FailFrame:
		return false, nil
	default:
		if reply.Code() == echoCode {
			return true, nil
		}
		return false, protocolErr(op, errUnexpectedReply)
	}
}

// Advise pushes item's new value to a subscriber. Fire-and-forget.
func (c *Connection) Advise(item string, data []byte, format Format) error {
	if !c.isOpen() {
		return c.notConnected("Advise")
	}
	return c.writeFrame(&AdviseFrame{Format: format, Item: item, Data: data})
}

// Disconnect is idempotent. The first call while Open writes a Disconnect
// frame best-effort, stops the dispatch loop, closes the socket, and fires
// OnDisconnect exactly once. Later calls, or calls on a Connection that
// never reached Open, are no-ops.
func (c *Connection) Disconnect() error {
	if !c.isOpen() {
		return nil
	}
	c.state.Store(int32(StateClosing))
	_ = c.writeFrame(&DisconnectFrame{})
	c.teardown(errLocalDisconnect)
	return nil
}

// teardown is the single terminal path for every way a Connection can
// leave Open: local Disconnect, a received Disconnect, or a fault. It is
// safe to call more than once or concurrently; only the first call acts,
// guaranteeing OnDisconnect fires exactly once per Connection lifetime.
func (c *Connection) teardown(cause error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		if cause != nil && !errors.Is(cause, errLocalDisconnect) && !errors.Is(cause, errPeerDisconnected) && !errors.Is(cause, context.Canceled) {
			c.reportFault(cause)
		}
		if c.cancel != nil {
			c.cancel()
		}
		_ = c.nc.Close()
		c.state.Store(int32(StateClosed))
		close(c.stopped)
		c.handler.OnDisconnect()
	})
}

// reportFault is the "send a Fail frame best-effort" half of spec.md §7's
// propagation policy for Desync/WireError/ProtocolError in steady state;
// the socket write below is allowed to fail silently since the connection
// is already on its way out.
func (c *Connection) reportFault(cause error) {
	var ipcErr *Error
	reason := "internal error"
	if errors.As(cause, &ipcErr) {
		reason = ipcErr.Kind.String()
	}
	c.logger.Warn("connection fault", "reason", cause)
	_ = c.writeFrame(&FailFrame{Reason: reason})
	c.opts.onFault(cause)
}
