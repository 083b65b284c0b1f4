package ipcwire

import (
	"context"
	"net"
	"os"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Server listens on one endpoint, performs the inbound half of the
// handshake for every accepted socket, and hands each successfully
// handshaken socket off as an Open Connection running in its own
// goroutine. It mirrors the teacher's Server (accept loop + per-connection
// goroutine) with shutdown by closing the listener, generalized to the protocol's
// Connect/Fail handshake instead of a bare byte stream.
type Server struct {
	ln       net.Listener
	handler  ServerHandler
	logger   Logger
	connOpts []ConnOption
	stats    *Stats

	sockPath string // non-empty for a unix endpoint, unlinked on Close

	mu   sync.Mutex
	done bool
}

// ServerOption configures a Server at construction time.
type ServerOption func(*serverOptions)

type serverOptions struct {
	logger   Logger
	connOpts []ConnOption
	stats    *Stats
}

// WithServerLogger overrides the Server's own logger (accept errors,
// handshake rejections). Per-Connection logging is configured separately
// via WithServerConnOptions.
func WithServerLogger(l Logger) ServerOption {
	return func(o *serverOptions) { o.logger = l }
}

// WithServerConnOptions forwards ConnOptions to every Connection the
// Server creates.
func WithServerConnOptions(opts ...ConnOption) ServerOption {
	return func(o *serverOptions) { o.connOpts = append(o.connOpts, opts...) }
}

// WithServerStats has the Server record accepted/rejected/closed
// connection counts into stats as it runs its accept loop.
func WithServerStats(stats *Stats) ServerOption {
	return func(o *serverOptions) { o.stats = stats }
}

// NewServer resolves (host, service) into an endpoint and binds a listener
// to it, performing the local-socket-specific setup spec.md §4.5 step 1
// describes: remove a stale path (ignoring "absent"), apply an owner-only
// umask while the socket file is created, and remember the path for
// Close to unlink. For a TCP endpoint it sets SO_REUSEADDR on the listening
// socket via the control hook, matching the teacher's listener setup style.
func NewServer(host, service string, handler ServerHandler, opts ...ServerOption) (*Server, error) {
	ep, err := ResolveEndpoint(host, service)
	if err != nil {
		return nil, err
	}

	o := serverOptions{logger: defaultLogger()}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{handler: handler, logger: o.logger, connOpts: o.connOpts, stats: o.stats}

	lc := net.ListenConfig{Control: controlReuseAddr}

	switch ep.Network {
	case "unix":
		if err := removeStaleSocket(ep.Address); err != nil {
			return nil, wireErr("listen", err)
		}
		oldMask := unix.Umask(0o077)
		ln, err := lc.Listen(context.Background(), ep.Network, ep.Address)
		unix.Umask(oldMask)
		if err != nil {
			return nil, wireErr("listen", err)
		}
		s.ln = ln
		s.sockPath = ep.Address
	default:
		ln, err := lc.Listen(context.Background(), ep.Network, ep.Address)
		if err != nil {
			return nil, wireErr("listen", err)
		}
		s.ln = ln
	}

	return s, nil
}

// removeStaleSocket deletes a leftover unix-socket path from a prior run.
// Absence is not an error; any other failure is.
func removeStaleSocket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func controlReuseAddr(network, address string, c syscall.RawConn) error {
	if network != "tcp" && network != "tcp4" && network != "tcp6" {
		return nil
	}
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}

// Addr returns the listener's bound address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Serve accepts connections until ctx is canceled or the listener faults.
// Each accepted socket is handshaken and, on success, run to completion in
// its own goroutine, so the accept loop never blocks on a Connection's
// lifetime. Once accepting stops, Serve waits for every Connection it
// started to end before returning.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("server listening", "addr", s.ln.Addr())

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	var g errgroup.Group
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			done := s.done
			s.mu.Unlock()
			if done {
				break
			}
			s.logger.Error("accept error", "error", err)
			return wireErr("accept", err)
		}

		g.Go(func() error {
			s.serveOne(ctx, nc)
			return nil
		})
	}

	_ = g.Wait()
	return ctx.Err()
}

// serveOne performs spec.md §4.5's accept-time handshake for one socket and,
// on success, runs the resulting Connection to completion.
func (s *Server) serveOne(ctx context.Context, nc net.Conn) {
	codec := NewCodec(nc)

	frame, err := ReadFrame(codec, nil)
	if err != nil {
		s.logger.Warn("handshake read failed", "remote", nc.RemoteAddr(), "error", err)
		_ = nc.Close()
		return
	}
	connectFrame, ok := frame.(*ConnectFrame)
	if !ok {
		s.failAndClose(codec, nc, "expected Connect")
		return
	}

	handler := s.handler.OnAcceptConnection(connectFrame.Topic)
	if handler == nil {
		if s.stats != nil {
			s.stats.RecordHandshakeRejected()
		}
		s.failAndClose(codec, nc, "topic refused")
		return
	}

	if err := WriteFrame(codec, &ConnectFrame{Topic: connectFrame.Topic}); err != nil {
		s.logger.Warn("handshake echo failed", "remote", nc.RemoteAddr(), "error", err)
		_ = nc.Close()
		return
	}

	if s.stats != nil {
		s.stats.RecordConnectionAccepted()
	}

	conn := newConnection(nc, connectFrame.Topic, handler, s.connOpts...)
	conn.state.Store(int32(StateOpen))

	if err := conn.Run(ctx); err != nil {
		s.logger.Warn("connection ended", "topic", connectFrame.Topic, "id", conn.ID, "error", err)
	}
	if s.stats != nil {
		s.stats.RecordConnectionClosed()
	}
}

func (s *Server) failAndClose(codec *Codec, nc net.Conn, reason string) {
	_ = WriteFrame(codec, &FailFrame{Reason: reason})
	_ = nc.Close()
}

// Close stops accepting new connections. Already-running Connections are
// unaffected; callers that want full drain should cancel the context passed
// to Serve and wait on their own tracking of in-flight Connections.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.done = true
	s.mu.Unlock()

	err := s.ln.Close()
	if s.sockPath != "" {
		_ = os.Remove(s.sockPath)
	}
	return err
}
