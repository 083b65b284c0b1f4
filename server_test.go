package ipcwire

import (
	"context"
	"net"
	"testing"
	"time"
)

type mockServerHandler struct {
	accept func(topic string) Handler
}

func (h *mockServerHandler) OnAcceptConnection(topic string) Handler {
	if h.accept != nil {
		return h.accept(topic)
	}
	return &mockHandler{}
}

func startTestServer(t *testing.T, sh ServerHandler) *Server {
	t.Helper()
	s, err := NewServer("127.0.0.1", "0", sh)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		s.Close()
	})
	go s.Serve(ctx)
	return s
}

func TestServer_HandshakeAccepted(t *testing.T) {
	s := startTestServer(t, &mockServerHandler{})

	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer nc.Close()

	codec := NewCodec(nc)
	if err := WriteFrame(codec, &ConnectFrame{Topic: "IPC TEST"}); err != nil {
		t.Fatalf("write Connect failed: %v", err)
	}

	frame, err := ReadFrame(codec, nil)
	if err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	cf, ok := frame.(*ConnectFrame)
	if !ok {
		t.Fatalf("expected echoed Connect, got %T", frame)
	}
	if cf.Topic != "IPC TEST" {
		t.Errorf("echoed topic = %q, want %q", cf.Topic, "IPC TEST")
	}
}

func TestServer_HandshakeRefused(t *testing.T) {
	s := startTestServer(t, &mockServerHandler{
		accept: func(string) Handler { return nil },
	})

	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer nc.Close()

	codec := NewCodec(nc)
	if err := WriteFrame(codec, &ConnectFrame{Topic: "VCP GRFG"}); err != nil {
		t.Fatalf("write Connect failed: %v", err)
	}

	frame, err := ReadFrame(codec, nil)
	if err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	if _, ok := frame.(*FailFrame); !ok {
		t.Fatalf("expected Fail, got %T", frame)
	}
}

func TestServer_WrongFirstFrame(t *testing.T) {
	s := startTestServer(t, &mockServerHandler{})

	nc, err := net.Dial("tcp", s.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer nc.Close()

	codec := NewCodec(nc)
	if err := WriteFrame(codec, &PokeFrame{Format: FormatPrivate, Item: "x", Data: []byte("y")}); err != nil {
		t.Fatalf("write Poke failed: %v", err)
	}

	frame, err := ReadFrame(codec, nil)
	if err != nil {
		t.Fatalf("read reply failed: %v", err)
	}
	if _, ok := frame.(*FailFrame); !ok {
		t.Fatalf("expected Fail, got %T", frame)
	}
}

func TestServer_FullRoundTrip(t *testing.T) {
	pong := []byte("pong\x00")
	s := startTestServer(t, &mockServerHandler{
		accept: func(string) Handler {
			return &mockHandler{
				requestReply: func(item string, format Format) ([]byte, int) {
					if item == "ping" {
						return pong, len(pong)
					}
					return nil, 0
				},
			}
		},
	})

	conn, err := MakeConnection("127.0.0.1", portOf(t, s.Addr()), "IPC TEST", func() Handler { return &mockHandler{} })
	if err != nil {
		t.Fatalf("MakeConnection failed: %v", err)
	}
	defer conn.Disconnect()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go conn.Run(ctx)

	data, err := conn.Request("ping", FormatPrivate)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if string(data) != string(pong) {
		t.Errorf("Request returned %q, want %q", data, pong)
	}
}

func portOf(t *testing.T, addr net.Addr) string {
	t.Helper()
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		t.Fatalf("SplitHostPort failed: %v", err)
	}
	return port
}

func TestServer_Close_StopsAccepting(t *testing.T) {
	s := startTestServer(t, &mockServerHandler{})
	if err := s.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := net.Dial("tcp", s.Addr().String()); err == nil {
		t.Error("expected dial to fail after Close")
	}
}
