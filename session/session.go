// Package session implements the RCON connection lifecycle: the
// authentication handshake (including the spurious-packet and
// undocumented-quirk-packet workarounds), monotonic request id
// allocation, request/response matching, and the pluggable
// fragment-resolution strategies that decide when a multi-packet command
// response is complete.
//
// A Session owns exactly one net.Conn and serializes all operations on
// it: Authenticate, Execute, and the internal read/write pair form a
// single critical section. Concurrent callers wanting parallelism must
// use independent Sessions over independent connections.
package session

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cavarest/rcon/frame"
	"github.com/cavarest/rcon/packet"
)

// rustQuirkType is an undocumented packet type observed from Rust RCON
// servers: an unsolicited packet sent before the real response. It must
// be discarded and the next packet read in its place.
const rustQuirkType int32 = 4

const (
	// DefaultReadTimeout is the transport read timeout applied to
	// individual reads when none is configured.
	DefaultReadTimeout = 5 * time.Second

	// DefaultFragmentTimeout is the inactivity window used by
	// TimeoutStrategy when none is configured.
	DefaultFragmentTimeout = 100 * time.Millisecond
)

// Session manages one authenticated RCON connection.
type Session struct {
	mu sync.Mutex

	conn   net.Conn
	reader *frame.Reader
	writer *frame.Writer
	codec  packet.Codec

	nextRequestID int32

	strategy        Strategy
	strategyErr     error
	fragmentTimeout time.Duration
	readTimeout     time.Duration

	logger *slog.Logger

	closed bool
}

// Option configures a Session at construction time.
type Option func(*Session)

// WithCharset selects the charset used to encode and decode payloads. The
// default is packet.UTF8. Changing the charset after construction is not
// supported.
func WithCharset(c packet.Charset) Option {
	return func(s *Session) { s.codec = packet.NewCodec(c) }
}

// WithStrategy selects the fragment-resolution strategy. The default is
// NewActiveProbeStrategy(). A nil strat is an argument error: it is not
// silently replaced by the default, but instead makes every subsequent
// Execute call fail with ErrNilStrategy, so a caller's explicit (if
// mistaken) choice is never overridden.
func WithStrategy(strat Strategy) Option {
	return func(s *Session) {
		if strat == nil {
			s.strategyErr = ErrNilStrategy
			return
		}
		s.strategy = strat
		s.strategyErr = nil
	}
}

// WithFragmentTimeout sets the inactivity window consulted by
// TimeoutStrategy. It has no effect under other strategies.
func WithFragmentTimeout(d time.Duration) Option {
	return func(s *Session) { s.fragmentTimeout = d }
}

// WithReadTimeout sets the transport read timeout applied to individual
// reads. Under TimeoutStrategy each fragment read uses the fragment
// timeout as its deadline instead (when the fragment timeout is positive).
func WithReadTimeout(d time.Duration) Option {
	return func(s *Session) { s.readTimeout = d }
}

// WithLogger installs a structured event sink. The default discards all
// events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New wraps an already-dialed connection in a Session. The Session is not
// usable for Execute until Authenticate succeeds.
func New(conn net.Conn, opts ...Option) *Session {
	s := &Session{
		conn:            conn,
		codec:           packet.NewCodec(packet.UTF8),
		strategy:        NewActiveProbeStrategy(),
		fragmentTimeout: DefaultFragmentTimeout,
		readTimeout:     DefaultReadTimeout,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reader = frame.NewReader(conn, s.codec)
	s.writer = frame.NewWriter(conn, s.codec)
	return s
}

// Close closes the underlying connection. It is idempotent; after Close,
// Authenticate and Execute both return packet.ErrConnectionClosed
// instead of attempting to use the closed connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

// Authenticate performs the SERVERDATA_AUTH handshake and returns whether
// the server accepted the password. A non-nil error indicates a
// connection or protocol failure distinct from a rejected password.
func (s *Session) Authenticate(password string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, packet.ErrConnectionClosed
	}

	id := s.nextID()
	if err := s.writePacket(id, packet.Auth, password); err != nil {
		return false, fmt.Errorf("session: auth write: %w", err)
	}

	if err := s.setReadDeadline(s.readTimeout); err != nil {
		return false, err
	}
	defer s.clearReadDeadline()

	resp, err := s.readRawPacket()
	if err != nil {
		return false, fmt.Errorf("session: auth read: %w", err)
	}

	// Some servers emit an empty SERVERDATA_RESPONSE_VALUE before the real
	// SERVERDATA_AUTH_RESPONSE. Discard it unconditionally, even if its
	// payload is unexpectedly non-empty.
	if resp.Type == packet.ResponseValue {
		s.logger.Debug("discarding spurious response before auth result", "payload_len", len(resp.Payload))
		resp, err = s.readRawPacket()
		if err != nil {
			return false, fmt.Errorf("session: auth read after quirk: %w", err)
		}
	}

	if resp.Type != packet.AuthResponse {
		return false, fmt.Errorf("%w: %w: expected AUTH_RESPONSE, got type %d", packet.ErrProtocolViolation, ErrInvalidAuthResponse, resp.Type)
	}

	return resp.IsValid(), nil
}

// TryAuthenticate calls Authenticate and turns a rejected password into
// ErrAuthFailed, so callers that want a single error return can avoid
// checking a boolean.
func (s *Session) TryAuthenticate(password string) error {
	ok, err := s.Authenticate(password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}
	return nil
}

// Execute sends command and returns the concatenation, in arrival order,
// of every fragment of the server's response, as determined by the
// active fragment strategy.
func (s *Session) Execute(command string) (string, error) {
	if s.strategyErr != nil {
		return "", s.strategyErr
	}
	if command == "" {
		return "", ErrCommandEmpty
	}
	if err := s.codec.Validate(packet.New(0, packet.ExecCommand, command)); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", packet.ErrConnectionClosed
	}

	id := s.nextID()
	if err := s.writePacket(id, packet.ExecCommand, command); err != nil {
		return "", fmt.Errorf("session: command write: %w", err)
	}

	if err := s.setReadDeadline(s.readTimeout); err != nil {
		return "", err
	}
	defer s.clearReadDeadline()

	return s.strategy.resolve(s, id)
}

// nextID allocates the next outbound request id, skipping the permanent
// failure sentinel -1. Wraps per two's-complement like any other int32
// counter.
func (s *Session) nextID() int32 {
	for {
		id := atomic.AddInt32(&s.nextRequestID, 1)
		if id != packet.InvalidRequestID {
			return id
		}
	}
}

func (s *Session) writePacket(id, typ int32, payload string) error {
	return s.writer.WritePacket(packet.New(id, typ, payload))
}

// readRawPacket reads one frame, transparently discarding and re-reading
// past the undocumented Rust-server quirk packet (type 4).
func (s *Session) readRawPacket() (packet.Packet, error) {
	p, err := s.reader.ReadPacket()
	if err != nil {
		return packet.Packet{}, err
	}
	if p.Type == rustQuirkType {
		s.logger.Debug("discarding undocumented quirk packet", "type", p.Type)
		return s.reader.ReadPacket()
	}
	return p, nil
}

// wireLen returns the byte length p.Payload would occupy on the wire
// under the session's charset, for strategies that reason about wire
// size rather than decoded string length.
func (s *Session) wireLen(p packet.Packet) int {
	return len(s.codec.Charset().Encode(p.Payload))
}

func (s *Session) setReadDeadline(d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.conn.SetReadDeadline(time.Now().Add(d))
}

func (s *Session) clearReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Time{})
}

// validateFragment checks that p is a legal fragment of the response to
// requestID: a RESPONSE_VALUE packet, not the auth-failure sentinel, and
// carrying the matching request id.
func validateFragment(p packet.Packet, requestID int32) error {
	if p.Type != packet.ResponseValue {
		return fmt.Errorf("%w: expected RESPONSE_VALUE fragment, got type %d", packet.ErrProtocolViolation, p.Type)
	}
	if !p.IsValid() {
		return fmt.Errorf("%w: received auth-failure sentinel in command response", packet.ErrProtocolViolation)
	}
	if p.RequestID != requestID {
		return fmt.Errorf("%w: %w: got id %d, want %d", packet.ErrProtocolViolation, ErrInvalidPacketID, p.RequestID, requestID)
	}
	return nil
}
