package ipcwire

import (
	"bufio"
	"encoding/binary"
	"io"
)

// flushSize is the buffered-writer threshold: near one Ethernet MTU, so the
// small fields making up one logical frame stay coalesced into a single
// transmit instead of trickling out syscall by syscall.
const flushSize = 1448

// defaultMaxBlobSize bounds how large a single length-prefixed blob or
// string this Codec will allocate for, short of an explicit override.
const defaultMaxBlobSize = 16 * 1024 * 1024

// Codec wraps a single bidirectional byte stream (typically a net.Conn)
// with the typed primitive read/write operations the wire format is built
// from. Reads are unbuffered — each call issues blocking reads straight
// against the underlying stream, and a short read is a fault, not a
// retry opportunity. Writes are buffered: they reach the wire on Flush, or
// earlier once more than flushSize bytes are pending.
type Codec struct {
	r io.Reader
	w *bufio.Writer

	maxBlobSize int
}

// NewCodec wraps rw for framed reads and writes.
func NewCodec(rw io.ReadWriter) *Codec {
	return &Codec{
		r:           rw,
		w:           bufio.NewWriterSize(rw, flushSize),
		maxBlobSize: defaultMaxBlobSize,
	}
}

// SetMaxBlobSize overrides the allocation ceiling for incoming
// length-prefixed strings and blobs. A length header exceeding the limit is
// a WireError, not a crash.
func (c *Codec) SetMaxBlobSize(n int) {
	if n > 0 {
		c.maxBlobSize = n
	}
}

func (c *Codec) readFull(buf []byte) error {
	if _, err := io.ReadFull(c.r, buf); err != nil {
		return wireErr("read", err)
	}
	return nil
}

// ReadU8 reads a single byte.
func (c *Codec) ReadU8() (uint8, error) {
	var b [1]byte
	if err := c.readFull(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// WriteU8 appends a single byte to the buffered output.
func (c *Codec) WriteU8(v uint8) error {
	_, err := c.w.Write([]byte{v})
	if err != nil {
		return wireErr("write", err)
	}
	return nil
}

// ReadU32 reads a big-endian 32-bit word.
func (c *Codec) ReadU32() (uint32, error) {
	var b [4]byte
	if err := c.readFull(b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// WriteU32 appends a big-endian 32-bit word to the buffered output.
func (c *Codec) WriteU32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	if _, err := c.w.Write(b[:]); err != nil {
		return wireErr("write", err)
	}
	return nil
}

// ReadBlob reads a u32 length prefix followed by that many raw bytes. If
// bufFor is non-nil it is used to obtain the destination buffer (letting a
// Handler stage the payload without an extra copy); otherwise a fresh slice
// is allocated.
func (c *Codec) ReadBlob(bufFor func(size int) []byte) ([]byte, error) {
	n, err := c.ReadU32()
	if err != nil {
		return nil, err
	}
	if int64(n) > int64(c.maxBlobSize) {
		return nil, wireErr("read-blob", io.ErrShortBuffer)
	}
	if n == 0 {
		return nil, nil
	}

	var buf []byte
	if bufFor != nil {
		if b := bufFor(int(n)); len(b) >= int(n) {
			buf = b[:n]
		}
	}
	if buf == nil {
		buf = make([]byte, n)
	}
	if err := c.readFull(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteBlob appends a u32 length prefix and the first n bytes of data.
func (c *Codec) WriteBlob(data []byte, n int) error {
	if n < 0 || n > len(data) {
		n = len(data)
	}
	if err := c.WriteU32(uint32(n)); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	if _, err := c.w.Write(data[:n]); err != nil {
		return wireErr("write", err)
	}
	return nil
}

// ReadString reads a u32 length prefix followed by that many UTF-8 bytes. A
// length of zero yields the empty string.
func (c *Codec) ReadString() (string, error) {
	blob, err := c.ReadBlob(nil)
	if err != nil {
		return "", err
	}
	return string(blob), nil
}

// WriteString appends a u32 length prefix and the UTF-8 bytes of s.
func (c *Codec) WriteString(s string) error {
	return c.WriteBlob([]byte(s), len(s))
}

// Flush forces any buffered output onto the underlying stream.
func (c *Codec) Flush() error {
	if err := c.w.Flush(); err != nil {
		return wireErr("flush", err)
	}
	return nil
}

// MessageWriter composes a single logical frame: every field appended
// through it lands in the Codec's write buffer, and Close flushes whatever
// of the frame is still buffered onto the wire. A frame no larger than
// flushSize goes out as one segment; a larger one is written in
// buffer-sized pieces as it is composed. Callers must defer Close (or
// call it explicitly) before releasing the write gate — an unflushed
// MessageWriter leaves fragments sitting in the buffer.
type MessageWriter struct {
	c   *Codec
	err error
}

// BeginMessage starts composing one frame. The caller is expected to write
// the header and body fields in order and then Close the writer.
func (c *Codec) BeginMessage() *MessageWriter {
	return &MessageWriter{c: c}
}

func (m *MessageWriter) fail(err error) error {
	if m.err == nil {
		m.err = err
	}
	return m.err
}

// U8 appends a byte field, short-circuiting once a prior field has failed.
func (m *MessageWriter) U8(v uint8) *MessageWriter {
	if m.err != nil {
		return m
	}
	m.fail(m.c.WriteU8(v))
	return m
}

// U32 appends a big-endian 32-bit field.
func (m *MessageWriter) U32(v uint32) *MessageWriter {
	if m.err != nil {
		return m
	}
	m.fail(m.c.WriteU32(v))
	return m
}

// Str appends a length-prefixed UTF-8 string field.
func (m *MessageWriter) Str(s string) *MessageWriter {
	if m.err != nil {
		return m
	}
	m.fail(m.c.WriteString(s))
	return m
}

// Blob appends a length-prefixed raw byte field, using n of data.
func (m *MessageWriter) Blob(data []byte, n int) *MessageWriter {
	if m.err != nil {
		return m
	}
	m.fail(m.c.WriteBlob(data, n))
	return m
}

// Close flushes the composed frame onto the wire and returns the first
// error encountered while composing or flushing it.
func (m *MessageWriter) Close() error {
	if m.err != nil {
		return m.err
	}
	return m.c.Flush()
}
