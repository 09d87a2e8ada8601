// Package packet implements the Source RCON wire packet: its value type,
// the protocol type codes, and the binary codec that turns one packet into
// bytes and back.
//
// Wire layout (little-endian throughout):
//
//	0..4   length (int32)       byte count of everything below
//	4..8   request id (int32)
//	8..12  type (int32)
//	12..   payload (charset-encoded text)
//	       0x00                 payload terminator
//	       0x00                 structural pad
//
// The length prefix is not part of a Packet value — it belongs to the
// frame, since it describes the frame, not the packet. See package frame.
package packet

import "errors"

// Protocol type codes. The wire does not carry direction, so the value 2
// means AuthResponse when sent server-to-client during the auth phase and
// ExecCommand when sent client-to-server during the command phase.
const (
	// ResponseValue is server-to-client command output, and doubles as the
	// empty placeholder some servers emit before AuthResponse.
	ResponseValue int32 = 0

	// ExecCommand is client-to-server command execution. Overloaded on the
	// wire with AuthResponse; phase disambiguates.
	ExecCommand int32 = 2

	// AuthResponse is the server-to-client authentication result.
	AuthResponse int32 = 2

	// Auth is the client-to-server authentication request.
	Auth int32 = 3
)

// InvalidRequestID is the server's sentinel for authentication failure. It
// is never allocated as an outbound request id.
const InvalidRequestID int32 = -1

const (
	// HeaderSize is the number of bytes in the id+type header, i.e. the
	// frame length minus the payload and its two trailing zero bytes.
	HeaderSize = 8

	// TerminatorSize is the payload terminator plus the structural pad.
	TerminatorSize = 2

	// MinLength is the smallest legal frame length: an empty payload still
	// carries the header and the two trailing zero bytes.
	MinLength = HeaderSize + TerminatorSize

	// MaxRequestPayload is the client-to-server payload ceiling in bytes.
	MaxRequestPayload = 1446

	// MaxResponsePayload is the server-to-client payload ceiling in bytes.
	MaxResponsePayload = 4096

	// MaxLength is the largest legal frame length, covering a maximal
	// server-to-client payload plus header and terminator.
	MaxLength = HeaderSize + TerminatorSize + MaxResponsePayload
)

// ErrCommandTooLong is returned when an outbound payload exceeds
// MaxRequestPayload bytes.
var ErrCommandTooLong = errors.New("packet: payload exceeds maximum request size")

// ErrInvalidPacketPadding is returned when the two bytes following the
// payload are not both 0x00.
var ErrInvalidPacketPadding = errors.New("packet: invalid padding after payload")

// ErrResponseTooSmall is returned when a decoded buffer is shorter than
// MinLength.
var ErrResponseTooSmall = errors.New("packet: response smaller than minimum packet size")

// ErrProtocolViolation is the shared sentinel for malformed frame lengths,
// wrong packet types at a phase that required a specific one, and
// unmatched or sentinel-invalid request ids on a command response. Layers
// above the codec wrap it with fmt.Errorf("%w: ...", ErrProtocolViolation, ...)
// to add detail while remaining matchable with errors.Is.
var ErrProtocolViolation = errors.New("packet: protocol violation")

// ErrConnectionClosed is returned by Session operations after Close, and
// wraps the io.EOF or io.ErrUnexpectedEOF of a frame read cut short by
// end of stream. Other transport errors are returned as they are.
var ErrConnectionClosed = errors.New("packet: connection closed")

// Packet is the immutable logical unit carried by one frame: a request id,
// a type code, and a text payload. The zero value is a valid empty packet.
type Packet struct {
	RequestID int32
	Type      int32
	Payload   string
}

// New constructs a Packet. Payload is never treated as absent; an empty
// string is the only representation of "no payload".
func New(requestID, typ int32, payload string) Packet {
	return Packet{RequestID: requestID, Type: typ, Payload: payload}
}

// IsValid reports whether the packet's request id is not the sentinel
// failure value -1.
func (p Packet) IsValid() bool {
	return p.RequestID != InvalidRequestID
}

// EncodedLen returns the frame length this packet would occupy on the
// wire, not including the 4-byte length prefix itself.
func (p Packet) EncodedLen(c Charset) int {
	return HeaderSize + len(c.Encode(p.Payload)) + TerminatorSize
}
