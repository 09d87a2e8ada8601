// Package rcontest provides an in-process TCP RCON stub server for tests
// that need precise control over packet timing and content: the auth
// quirk, multi-packet fragmentation, protocol violations, and deliberate
// silence under the TIMEOUT strategy. It is modeled on
// net/http/httptest.Server's NewServer/Close/Addr lifecycle.
package rcontest

import (
	"encoding/binary"
	"net"
	"sync"

	"github.com/cavarest/rcon/frame"
	"github.com/cavarest/rcon/packet"
)

// Conn gives a Handler frame-level control over one accepted connection.
type Conn struct {
	// Raw is the underlying net.Conn, for handlers that need to write
	// malformed bytes directly or close the connection mid-exchange.
	Raw net.Conn

	reader *frame.Reader
	writer *frame.Writer
}

// ReadPacket reads the next client packet.
func (c *Conn) ReadPacket() (packet.Packet, error) {
	return c.reader.ReadPacket()
}

// WritePacket writes one server packet. It is not held to the
// client-to-server payload ceiling, so fragments up to
// packet.MaxResponsePayload bytes can be sent.
func (c *Conn) WritePacket(p packet.Packet) error {
	buf := packet.NewCodec(packet.UTF8).Encode(make([]byte, 4), p)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(buf)-4))
	return c.WriteRaw(buf)
}

// WriteRaw writes bytes directly to the connection, bypassing framing
// entirely. Used to script malformed-length and truncated-stream cases.
func (c *Conn) WriteRaw(b []byte) error {
	_, err := c.Raw.Write(b)
	return err
}

// Handler drives one accepted connection. It runs in its own goroutine
// and should return once it is done scripting the exchange; the server
// closes the underlying connection when the handler returns.
type Handler func(c *Conn)

// Server is a minimal in-process RCON server for tests.
type Server struct {
	ln      net.Listener
	handler Handler

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewServer starts a listener on 127.0.0.1 and accepts connections with
// handler. A nil handler defaults to EchoHandler("password"). NewServer
// panics if the listener cannot be created, matching httptest.NewServer's
// test-only contract.
func NewServer(handler Handler) *Server {
	if handler == nil {
		handler = EchoHandler("password")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("rcontest: " + err.Error())
	}

	s := &Server{ln: ln, handler: handler}
	s.wg.Add(1)
	go s.serve()
	return s
}

// Addr returns the address callers should dial.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Close stops accepting new connections, closes every accepted
// connection, and waits for in-flight handlers to return. It is
// idempotent.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) serve() {
	defer s.wg.Done()

	var accepted []net.Conn
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			// The listener is closed: unblock handlers still reading.
			for _, c := range accepted {
				_ = c.Close()
			}
			return
		}
		accepted = append(accepted, conn)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()

			codec := packet.NewCodec(packet.UTF8)
			c := &Conn{
				Raw:    conn,
				reader: frame.NewReader(conn, codec),
				writer: frame.NewWriter(conn, codec),
			}
			s.handler(c)
		}()
	}
}
