package ipcwire

// Code identifies the shape of a Frame's body, per the low byte of the
// frame header.
type Code uint8

const (
	CodeExecute       Code = 1
	CodeRequest       Code = 2
	CodePoke          Code = 3
	CodeAdviseStart   Code = 4
	CodeAdviseRequest Code = 5
	CodeAdvise        Code = 6
	CodeAdviseStop    Code = 7
	CodeRequestReply  Code = 8
	CodeFail          Code = 9
	CodeConnect       Code = 10
	CodeDisconnect    Code = 11
)

func (c Code) String() string {
	switch c {
	case CodeExecute:
		return "Execute"
	case CodeRequest:
		return "Request"
	case CodePoke:
		return "Poke"
	case CodeAdviseStart:
		return "AdviseStart"
	case CodeAdviseRequest:
		return "AdviseRequest"
	case CodeAdvise:
		return "Advise"
	case CodeAdviseStop:
		return "AdviseStop"
	case CodeRequestReply:
		return "RequestReply"
	case CodeFail:
		return "Fail"
	case CodeConnect:
		return "Connect"
	case CodeDisconnect:
		return "Disconnect"
	default:
		return "Unknown"
	}
}

// syncPattern is the fixed 24-bit constant every frame header carries in
// its high bits, used to detect stream desynchronization. All peers on the
// wire must agree on this value.
const syncPattern uint32 = 0x439D96

func header(code Code) uint32 {
	return (syncPattern << 8) | uint32(code)
}

// Frame is the sum type of wire messages: exactly one concrete type per
// Code, each knowing how to write its own body after the shared header.
type Frame interface {
	Code() Code
	writeBody(*Codec) error
}

// ExecuteFrame is a fire-and-forget command: no reply is expected.
type ExecuteFrame struct {
	Format Format
	Data   []byte
}

func (f *ExecuteFrame) Code() Code { return CodeExecute }
func (f *ExecuteFrame) writeBody(c *Codec) error {
	return c.BeginMessage().U8(uint8(f.Format)).Blob(f.Data, len(f.Data)).Close()
}

// RequestFrame asks the peer for item's current value in the given format.
type RequestFrame struct {
	Format Format
	Item   string
}

func (f *RequestFrame) Code() Code { return CodeRequest }
func (f *RequestFrame) writeBody(c *Codec) error {
	return c.BeginMessage().U8(uint8(f.Format)).Str(f.Item).Close()
}

// PokeFrame is a fire-and-forget update to item.
type PokeFrame struct {
	Format Format
	Item   string
	Data   []byte
}

func (f *PokeFrame) Code() Code { return CodePoke }
func (f *PokeFrame) writeBody(c *Codec) error {
	return c.BeginMessage().U8(uint8(f.Format)).Str(f.Item).Blob(f.Data, len(f.Data)).Close()
}

// AdviseStartFrame subscribes to item (request), or echoes the
// subscription back as confirmation (reply).
type AdviseStartFrame struct {
	Item string
}

func (f *AdviseStartFrame) Code() Code { return CodeAdviseStart }
func (f *AdviseStartFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Str(f.Item).Close()
}

// AdviseRequestFrame asks the peer to push item's current value through an
// Advise frame. The protocol defines the wire shape but no application
// callback consumes it (see DESIGN.md); it round-trips but is otherwise
// inert.
type AdviseRequestFrame struct {
	Item string
}

func (f *AdviseRequestFrame) Code() Code { return CodeAdviseRequest }
func (f *AdviseRequestFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Str(f.Item).Close()
}

// AdviseFrame is a fire-and-forget push of item's new value to a subscriber.
type AdviseFrame struct {
	Format Format
	Item   string
	Data   []byte
}

func (f *AdviseFrame) Code() Code { return CodeAdvise }
func (f *AdviseFrame) writeBody(c *Codec) error {
	return c.BeginMessage().U8(uint8(f.Format)).Str(f.Item).Blob(f.Data, len(f.Data)).Close()
}

// AdviseStopFrame unsubscribes from item (request), or echoes the
// unsubscription back as confirmation (reply).
type AdviseStopFrame struct {
	Item string
}

func (f *AdviseStopFrame) Code() Code { return CodeAdviseStop }
func (f *AdviseStopFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Str(f.Item).Close()
}

// RequestReplyFrame answers a RequestFrame with item's value.
type RequestReplyFrame struct {
	Format Format
	Item   string
	Data   []byte
}

func (f *RequestReplyFrame) Code() Code { return CodeRequestReply }
func (f *RequestReplyFrame) writeBody(c *Codec) error {
	return c.BeginMessage().U8(uint8(f.Format)).Str(f.Item).Blob(f.Data, len(f.Data)).Close()
}

// FailFrame reports that the preceding request could not be satisfied.
type FailFrame struct {
	Reason string
}

func (f *FailFrame) Code() Code { return CodeFail }
func (f *FailFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Str(f.Reason).Close()
}

// ConnectFrame opens (request) or confirms (echoed reply) a topic.
type ConnectFrame struct {
	Topic string
}

func (f *ConnectFrame) Code() Code { return CodeConnect }
func (f *ConnectFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Str(f.Topic).Close()
}

// DisconnectFrame carries no body; it announces the sender is tearing the
// connection down.
type DisconnectFrame struct{}

func (f *DisconnectFrame) Code() Code { return CodeDisconnect }
func (f *DisconnectFrame) writeBody(c *Codec) error {
	return c.BeginMessage().Close()
}

// WriteFrame serializes f as header + body onto c's buffered writer and
// flushes it atomically.
func WriteFrame(c *Codec, f Frame) error {
	if err := c.WriteU32(header(f.Code())); err != nil {
		return err
	}
	return f.writeBody(c)
}

// ReadFrame parses exactly one frame from c. bufFor, if non-nil, is used to
// stage the body's blob payload (Execute/Poke/Advise/RequestReply) without
// an extra copy; it is never consulted for frames with no blob body.
//
// A header whose high 24 bits do not match syncPattern, a low byte that is
// not a known Code, or a body that cannot be read whole is a Desync and is
// terminal for the connection it came from. A failure to read the header
// itself stays a WireError.
func ReadFrame(c *Codec, bufFor func(size int) []byte) (f Frame, err error) {
	word, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if word&0xFFFFFF00 != syncPattern<<8 {
		return nil, desyncErr("read-frame", errBadSync)
	}
	code := Code(word & 0xFF)

	defer func() {
		if e, ok := err.(*Error); ok && e.Kind == KindWireError {
			err = desyncErr("read-frame", err)
		}
	}()

	switch code {
	case CodeExecute:
		format, data, err := readFormatBlob(c, bufFor)
		if err != nil {
			return nil, err
		}
		return &ExecuteFrame{Format: format, Data: data}, nil
	case CodeRequest:
		format, item, err := readFormatItem(c)
		if err != nil {
			return nil, err
		}
		return &RequestFrame{Format: format, Item: item}, nil
	case CodePoke:
		format, item, data, err := readFormatItemBlob(c, bufFor)
		if err != nil {
			return nil, err
		}
		return &PokeFrame{Format: format, Item: item, Data: data}, nil
	case CodeAdviseStart:
		item, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		return &AdviseStartFrame{Item: item}, nil
	case CodeAdviseRequest:
		item, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		return &AdviseRequestFrame{Item: item}, nil
	case CodeAdvise:
		format, item, data, err := readFormatItemBlob(c, bufFor)
		if err != nil {
			return nil, err
		}
		return &AdviseFrame{Format: format, Item: item, Data: data}, nil
	case CodeAdviseStop:
		item, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		return &AdviseStopFrame{Item: item}, nil
	case CodeRequestReply:
		format, item, data, err := readFormatItemBlob(c, bufFor)
		if err != nil {
			return nil, err
		}
		return &RequestReplyFrame{Format: format, Item: item, Data: data}, nil
	case CodeFail:
		reason, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		return &FailFrame{Reason: reason}, nil
	case CodeConnect:
		topic, err := c.ReadString()
		if err != nil {
			return nil, err
		}
		return &ConnectFrame{Topic: topic}, nil
	case CodeDisconnect:
		return &DisconnectFrame{}, nil
	default:
		return nil, desyncErr("read-frame", errUnknownCode)
	}
}

func readFormatBlob(c *Codec, bufFor func(int) []byte) (Format, []byte, error) {
	fb, err := c.ReadU8()
	if err != nil {
		return 0, nil, err
	}
	data, err := c.ReadBlob(bufFor)
	if err != nil {
		return 0, nil, err
	}
	return Format(fb), data, nil
}

func readFormatItem(c *Codec) (Format, string, error) {
	fb, err := c.ReadU8()
	if err != nil {
		return 0, "", err
	}
	item, err := c.ReadString()
	if err != nil {
		return 0, "", err
	}
	return Format(fb), item, nil
}

func readFormatItemBlob(c *Codec, bufFor func(int) []byte) (Format, string, []byte, error) {
	fb, err := c.ReadU8()
	if err != nil {
		return 0, "", nil, err
	}
	item, err := c.ReadString()
	if err != nil {
		return 0, "", nil, err
	}
	data, err := c.ReadBlob(bufFor)
	if err != nil {
		return 0, "", nil, err
	}
	return Format(fb), item, data, nil
}
