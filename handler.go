package ipcwire

// Handler is the capability set an embedding application supplies per
// Connection. Every callback may be a no-op; none of them may block
// indefinitely, since the dispatch loop that invokes them serially drives
// all inbound traffic for that Connection.
type Handler interface {
	// OnExecute is invoked for an inbound Execute frame. No reply is sent.
	OnExecute(topic string, data []byte, format Format)

	// OnRequest is invoked for an inbound Request frame. Returning a nil
	// slice signals failure (the caller replies with Fail); otherwise the
	// returned bytes become the RequestReply body. size is the number of
	// bytes of the returned slice to actually send; a negative size means
	// "compute it from format" (see inferSize).
	OnRequest(topic, item string, format Format) (data []byte, size int)

	// OnPoke is invoked for an inbound Poke frame. No reply is sent.
	OnPoke(topic, item string, data []byte, format Format)

	// OnStartAdvise is invoked for an inbound AdviseStart frame. A false
	// return causes a Fail reply instead of an echoed AdviseStart.
	OnStartAdvise(topic, item string) bool

	// OnStopAdvise is invoked for an inbound AdviseStop frame. A false
	// return causes a Fail reply instead of an echoed AdviseStop.
	OnStopAdvise(topic, item string) bool

	// OnAdvise is invoked for an inbound Advise frame. No reply is sent.
	OnAdvise(topic, item string, data []byte, format Format)

	// OnDisconnect fires exactly once per Connection lifetime, regardless
	// of which side or what reason ended it.
	OnDisconnect()

	// GetBufferAtLeast lets the Handler stage an incoming blob payload in
	// a buffer it owns, avoiding an extra copy. The returned slice's
	// length must be at least size; its lifetime is controlled by the
	// Handler. Returning nil or a shorter slice falls back to a core-owned
	// allocation.
	GetBufferAtLeast(size int) []byte
}

// ServerHandler is additionally supplied to a Server: it mints the
// per-connection Handler once a peer's topic has been accepted, or
// refuses the connection by returning nil.
type ServerHandler interface {
	OnAcceptConnection(topic string) Handler
}

// ClientHandlerFunc mints the Handler for a Client-initiated Connection.
// It is called once MakeConnection's handshake has succeeded.
type ClientHandlerFunc func() Handler

// NopHandler is a Handler whose every callback is a no-op, useful as an
// embeddable base for applications that only care about a few callbacks.
type NopHandler struct{}

func (NopHandler) OnExecute(string, []byte, Format)                      {}
func (NopHandler) OnRequest(string, string, Format) ([]byte, int)        { return nil, 0 }
func (NopHandler) OnPoke(string, string, []byte, Format)                 {}
func (NopHandler) OnStartAdvise(string, string) bool                     { return false }
func (NopHandler) OnStopAdvise(string, string) bool                      { return false }
func (NopHandler) OnAdvise(string, string, []byte, Format)               {}
func (NopHandler) OnDisconnect()                                         {}
func (NopHandler) GetBufferAtLeast(int) []byte                           { return nil }
