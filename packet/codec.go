package packet

import "encoding/binary"

// Codec encodes and decodes Packets under a configured Charset. It holds
// no mutable state beyond the charset choice and is safe for concurrent
// use by multiple Sessions.
type Codec struct {
	charset Charset
}

// NewCodec returns a Codec using the given charset. A nil charset
// defaults to UTF8.
func NewCodec(c Charset) Codec {
	if c == nil {
		c = UTF8
	}
	return Codec{charset: c}
}

// Charset returns the codec's configured charset.
func (c Codec) Charset() Charset {
	return c.charset
}

// Validate fails with ErrCommandTooLong if the packet's encoded payload
// would exceed MaxRequestPayload bytes. Frame writers must call this
// before emitting a packet bound for the server.
func (c Codec) Validate(p Packet) error {
	if len(c.charset.Encode(p.Payload)) > MaxRequestPayload {
		return ErrCommandTooLong
	}
	return nil
}

// Encode appends the wire representation of p (request id, type, payload
// bytes, terminator, pad) to dst and returns the extended slice. It does
// not write the length prefix; that is the frame writer's responsibility.
func (c Codec) Encode(dst []byte, p Packet) []byte {
	var hdr [HeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(p.RequestID))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(p.Type))

	dst = append(dst, hdr[:]...)
	dst = append(dst, c.charset.Encode(p.Payload)...)
	dst = append(dst, 0x00, 0x00)
	return dst
}

// Decode reads a Packet out of buf, which must be exactly one frame's
// body (i.e. everything after the 4-byte length prefix, length bytes
// long). It returns ErrResponseTooSmall if buf is shorter than the
// minimum packet size, and ErrInvalidPacketPadding if the two bytes
// following the payload are not both zero.
func (c Codec) Decode(buf []byte) (Packet, error) {
	if len(buf) < MinLength {
		return Packet{}, ErrResponseTooSmall
	}

	requestID := int32(binary.LittleEndian.Uint32(buf[0:4]))
	typ := int32(binary.LittleEndian.Uint32(buf[4:8]))

	payload := buf[HeaderSize : len(buf)-TerminatorSize]
	pad := buf[len(buf)-TerminatorSize:]
	if pad[0] != 0x00 || pad[1] != 0x00 {
		return Packet{}, ErrInvalidPacketPadding
	}

	return Packet{
		RequestID: requestID,
		Type:      typ,
		Payload:   c.charset.Decode(payload),
	}, nil
}
