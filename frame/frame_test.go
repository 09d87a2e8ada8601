package frame_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/cavarest/rcon/frame"
	"github.com/cavarest/rcon/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	var buf bytes.Buffer

	w := frame.NewWriter(&buf, codec)
	p := packet.New(1, packet.Auth, "password")
	require.NoError(t, w.WritePacket(p))

	// first four bytes are the little-endian length prefix
	raw := buf.Bytes()
	require.Len(t, raw, 4+18)
	assert.Equal(t, byte(18), raw[0])
	assert.Equal(t, byte(0), raw[1])

	r := frame.NewReader(&buf, codec)
	got, err := r.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestReadLengthTooSmall(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	var buf bytes.Buffer
	buf.Write([]byte{9, 0, 0, 0})

	r := frame.NewReader(&buf, codec)
	_, err := r.ReadPacket()
	assert.ErrorIs(t, err, packet.ErrProtocolViolation)
}

func TestReadLengthTooLarge(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	var buf bytes.Buffer
	buf.Write([]byte{0x0B, 0x10, 0, 0}) // 4107

	r := frame.NewReader(&buf, codec)
	_, err := r.ReadPacket()
	assert.ErrorIs(t, err, packet.ErrProtocolViolation)
}

func TestReadShortStream(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	r := frame.NewReader(strings.NewReader(""), codec)
	_, err := r.ReadPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteOversizePayloadFailsBeforeWrite(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	var buf bytes.Buffer
	w := frame.NewWriter(&buf, codec)

	p := packet.New(1, packet.ExecCommand, strings.Repeat("x", packet.MaxRequestPayload+1))
	err := w.WritePacket(p)
	assert.ErrorIs(t, err, packet.ErrCommandTooLong)
	assert.Zero(t, buf.Len(), "no bytes should reach the transport")
}

func TestWriteMaxRequestPayloadFrame(t *testing.T) {
	codec := packet.NewCodec(packet.UTF8)
	var buf bytes.Buffer
	w := frame.NewWriter(&buf, codec)

	p := packet.New(1, packet.ExecCommand, strings.Repeat("y", packet.MaxRequestPayload))
	require.NoError(t, w.WritePacket(p))
	assert.Equal(t, packet.HeaderSize+packet.MaxRequestPayload+packet.TerminatorSize+4, buf.Len())
}
