package packet_test

import (
	"strings"
	"testing"

	"github.com/cavarest/rcon/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecRoundTrip(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)

	tests := []packet.Packet{
		packet.New(1, packet.Auth, "password"),
		packet.New(42, packet.ExecCommand, "list"),
		packet.New(0, packet.ResponseValue, ""),
		packet.New(-1, packet.AuthResponse, ""),
		packet.New(7, packet.ResponseValue, strings.Repeat("a", packet.MaxResponsePayload)),
	}

	for _, p := range tests {
		buf := codec.Encode(nil, p)
		got, err := codec.Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestWireLayout(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	p := packet.New(1, packet.Auth, "password")

	body := codec.Encode(nil, p)

	// length = HeaderSize(8) + len("password")(8) + TerminatorSize(2) = 18 = 0x12
	require.Len(t, body, 18)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, body[0:4], "request id")
	assert.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, body[4:8], "type")
	assert.Equal(t, "password", string(body[8:16]))
	assert.Equal(t, []byte{0x00, 0x00}, body[16:18])
}

func TestValidateSizeGuard(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)

	ok := packet.New(1, packet.ExecCommand, strings.Repeat("x", packet.MaxRequestPayload))
	assert.NoError(t, codec.Validate(ok))

	tooLong := packet.New(1, packet.ExecCommand, strings.Repeat("x", packet.MaxRequestPayload+1))
	assert.ErrorIs(t, codec.Validate(tooLong), packet.ErrCommandTooLong)
}

func TestDecodeTooSmall(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	_, err := codec.Decode(make([]byte, 9))
	assert.ErrorIs(t, err, packet.ErrResponseTooSmall)
}

func TestDecodeInvalidPadding(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	buf := codec.Encode(nil, packet.New(1, packet.ResponseValue, "hi"))
	buf[len(buf)-1] = 0x41 // corrupt the pad byte
	_, err := codec.Decode(buf)
	assert.ErrorIs(t, err, packet.ErrInvalidPacketPadding)
}

func TestISO88591Decode(t *testing.T) {
	codec := packet.NewCodec(packet.ISO88591)
	// 0xA7 0x61 under ISO-8859-1 decodes to "§a".
	raw := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xA7, 0x61, 0x00, 0x00}
	got, err := codec.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "§a", got.Payload)
}

func TestPacketIsValid(t *testing.T) {
	assert.True(t, packet.New(0, packet.AuthResponse, "").IsValid())
	assert.False(t, packet.New(-1, packet.AuthResponse, "").IsValid())
}
