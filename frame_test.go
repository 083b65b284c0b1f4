package ipcwire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestFrame_RoundTrip(t *testing.T) {
	cases := []Frame{
		&ExecuteFrame{Format: FormatText, Data: []byte("Date\x00")},
		&RequestFrame{Format: FormatPrivate, Item: "ping"},
		&PokeFrame{Format: FormatPrivate, Item: "item", Data: []byte("value")},
		&AdviseStartFrame{Item: "ticker"},
		&AdviseRequestFrame{Item: "ticker"},
		&AdviseFrame{Format: FormatPrivate, Item: "ticker", Data: []byte("tick")},
		&AdviseStopFrame{Item: "ticker"},
		&RequestReplyFrame{Format: FormatPrivate, Item: "ping", Data: []byte("pong\x00")},
		&FailFrame{Reason: "refused"},
		&ConnectFrame{Topic: "IPC TEST"},
		&DisconnectFrame{},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		codec := NewCodec(&buf)
		if err := WriteFrame(codec, want); err != nil {
			t.Fatalf("WriteFrame(%T) failed: %v", want, err)
		}

		got, err := ReadFrame(codec, nil)
		if err != nil {
			t.Fatalf("ReadFrame after %T failed: %v", want, err)
		}
		if got.Code() != want.Code() {
			t.Errorf("code = %v, want %v", got.Code(), want.Code())
		}
		if !framesEqual(t, want, got) {
			t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
		}
	}
}

func framesEqual(t *testing.T, a, b Frame) bool {
	t.Helper()
	switch av := a.(type) {
	case *ExecuteFrame:
		bv := b.(*ExecuteFrame)
		return av.Format == bv.Format && bytes.Equal(av.Data, bv.Data)
	case *RequestFrame:
		bv := b.(*RequestFrame)
		return av.Format == bv.Format && av.Item == bv.Item
	case *PokeFrame:
		bv := b.(*PokeFrame)
		return av.Format == bv.Format && av.Item == bv.Item && bytes.Equal(av.Data, bv.Data)
	case *AdviseStartFrame:
		return av.Item == b.(*AdviseStartFrame).Item
	case *AdviseRequestFrame:
		return av.Item == b.(*AdviseRequestFrame).Item
	case *AdviseFrame:
		bv := b.(*AdviseFrame)
		return av.Format == bv.Format && av.Item == bv.Item && bytes.Equal(av.Data, bv.Data)
	case *AdviseStopFrame:
		return av.Item == b.(*AdviseStopFrame).Item
	case *RequestReplyFrame:
		bv := b.(*RequestReplyFrame)
		return av.Format == bv.Format && av.Item == bv.Item && bytes.Equal(av.Data, bv.Data)
	case *FailFrame:
		return av.Reason == b.(*FailFrame).Reason
	case *ConnectFrame:
		return av.Topic == b.(*ConnectFrame).Topic
	case *DisconnectFrame:
		return true
	default:
		t.Fatalf("unhandled frame type %T", a)
		return false
	}
}

// TestFrame_RoundTrip_BoundarySizes exercises encode/decode for blob and
// string fields at the lengths where a u32 length prefix's own boundary
// behavior (and any off-by-one in ReadBlob/WriteBlob) would most likely
// surface: empty, one byte, one byte over a single-byte-length encoding,
// and one and two bytes over the 16-bit maximum some legacy wire formats
// special-case.
func TestFrame_RoundTrip_BoundarySizes(t *testing.T) {
	sizes := []int{0, 1, 1 << 8, 1 << 16, 1<<16 + 1}

	for _, n := range sizes {
		data := bytes.Repeat([]byte{0xAB}, n)
		item := strings.Repeat("x", n)

		cases := []Frame{
			&ExecuteFrame{Format: FormatPrivate, Data: data},
			&PokeFrame{Format: FormatPrivate, Item: item, Data: data},
			&RequestFrame{Format: FormatPrivate, Item: item},
			&RequestReplyFrame{Format: FormatPrivate, Item: item, Data: data},
		}

		for _, want := range cases {
			var buf bytes.Buffer
			codec := NewCodec(&buf)
			if err := WriteFrame(codec, want); err != nil {
				t.Fatalf("size %d: WriteFrame(%T) failed: %v", n, want, err)
			}

			got, err := ReadFrame(codec, nil)
			if err != nil {
				t.Fatalf("size %d: ReadFrame after %T failed: %v", n, want, err)
			}
			if !framesEqual(t, want, got) {
				t.Errorf("size %d: round trip mismatch for %T: got %+v, want %+v", n, want, got, want)
			}
		}
	}
}

func TestReadFrame_BadSync(t *testing.T) {
	var buf bytes.Buffer
	codec := NewCodec(&buf)
	_ = codec.WriteU32(0xDEADBE00 | uint32(CodeExecute))
	_ = codec.Flush()

	_, err := ReadFrame(codec, nil)
	if err == nil {
		t.Fatal("expected Desync error for bad sync pattern")
	}
	var ipcErr *Error
	if !errors.As(err, &ipcErr) || ipcErr.Kind != KindDesync {
		t.Errorf("got %v, want KindDesync", err)
	}
}

func TestReadFrame_UnknownCode(t *testing.T) {
	var buf bytes.Buffer
	codec := NewCodec(&buf)
	_ = codec.WriteU32(header(Code(250)))
	_ = codec.Flush()

	_, err := ReadFrame(codec, nil)
	if err == nil {
		t.Fatal("expected Desync error for unknown code")
	}
	var ipcErr *Error
	if !errors.As(err, &ipcErr) || ipcErr.Kind != KindDesync {
		t.Errorf("got %v, want KindDesync", err)
	}
}

func TestCodec_BlobTooLarge(t *testing.T) {
	var buf bytes.Buffer
	codec := NewCodec(&buf)
	codec.SetMaxBlobSize(4)

	_ = codec.WriteU32(100)
	_ = codec.Flush()

	_, err := codec.ReadBlob(nil)
	if err == nil {
		t.Fatal("expected error for blob exceeding max size")
	}
}

func TestCodec_ReadBlob_UsesProvidedBuffer(t *testing.T) {
	var buf bytes.Buffer
	codec := NewCodec(&buf)
	if err := codec.WriteBlob([]byte("hello"), 5); err != nil {
		t.Fatalf("WriteBlob failed: %v", err)
	}
	if err := codec.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	staged := make([]byte, 16)
	got, err := codec.ReadBlob(func(size int) []byte { return staged })
	if err != nil {
		t.Fatalf("ReadBlob failed: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
	if string(staged[:5]) != "hello" {
		t.Errorf("staged buffer holds %q, want %q", staged[:5], "hello")
	}
}
