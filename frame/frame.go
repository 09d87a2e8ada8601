// Package frame implements length-prefixed framing of RCON packets on top
// of a byte transport. A Reader performs exactly-one-packet reads; a
// Writer performs exactly-one-packet, single-syscall writes. Neither type
// interprets packet contents beyond what the codec requires.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cavarest/rcon/packet"
)

// defaultWriteBufferCapacity is a typical MTU, matching the protocol's
// advice that a single frame usually fits in one IP packet.
const defaultWriteBufferCapacity = 1460

// newProtocolViolation builds an error wrapping packet.ErrProtocolViolation
// with a length-specific message.
func newProtocolViolation(reason string, length int32) error {
	return fmt.Errorf("frame: %w: %s (length=%d)", packet.ErrProtocolViolation, reason, length)
}

// Reader performs blocking, exact reads of one RCON frame at a time from
// an underlying io.Reader.
type Reader struct {
	r     io.Reader
	codec packet.Codec
}

// NewReader returns a Reader that decodes frames under codec.
func NewReader(r io.Reader, codec packet.Codec) *Reader {
	return &Reader{r: r, codec: codec}
}

// ReadPacket reads exactly one frame and decodes it into a Packet. End of
// stream before a complete frame is in hand is surfaced as
// packet.ErrConnectionClosed wrapping io.EOF or io.ErrUnexpectedEOF (per
// io.ReadFull's contract), so errors.Is matches either.
func (fr *Reader) ReadPacket() (packet.Packet, error) {
	closed := func(err error) error {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("frame: %w: %w", packet.ErrConnectionClosed, err)
		}
		return err
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return packet.Packet{}, closed(err)
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))

	if length < packet.MinLength {
		return packet.Packet{}, newProtocolViolation("length below minimum", length)
	}
	if length > packet.MaxLength {
		return packet.Packet{}, newProtocolViolation("length exceeds maximum", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(fr.r, body); err != nil {
		return packet.Packet{}, closed(err)
	}

	return fr.codec.Decode(body)
}

// Writer performs single-write emission of one RCON frame at a time to an
// underlying io.Writer.
type Writer struct {
	w     io.Writer
	codec packet.Codec
	buf   []byte
}

// NewWriter returns a Writer that encodes frames under codec. The scratch
// buffer starts at defaultWriteBufferCapacity and is resized up front,
// via Packet.EncodedLen, whenever a validated payload wouldn't fit.
func NewWriter(w io.Writer, codec packet.Codec) *Writer {
	return &Writer{
		w:     w,
		codec: codec,
		buf:   make([]byte, 0, defaultWriteBufferCapacity),
	}
}

// WritePacket validates, serializes, and writes p as one frame. The
// length prefix is computed from the serialized body so callers never
// need to track it themselves.
func (fw *Writer) WritePacket(p packet.Packet) error {
	if err := fw.codec.Validate(p); err != nil {
		return err
	}

	need := 4 + p.EncodedLen(fw.codec.Charset())
	if cap(fw.buf) < need {
		fw.buf = make([]byte, 0, need)
	}

	fw.buf = fw.buf[:0]
	fw.buf = append(fw.buf, 0, 0, 0, 0) // reserve the length prefix
	fw.buf = fw.codec.Encode(fw.buf, p)

	bodyLen := len(fw.buf) - 4
	binary.LittleEndian.PutUint32(fw.buf[0:4], uint32(bodyLen))

	_, err := fw.w.Write(fw.buf)
	return err
}
