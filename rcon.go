// Package rcon is the outer convenience client: it wraps host/port/
// password and dispatches to the protocol engine in packet/frame/session.
// The wire protocol itself — framing, the auth handshake, and the
// fragment-resolution strategies — lives in those subpackages; this file
// is a thin, trivial collaborator around them.
package rcon

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cavarest/rcon/packet"
	"github.com/cavarest/rcon/session"
)

// DefaultPort is the default RCON port used by Minecraft-family servers.
const DefaultPort = 25575

// DefaultDialTimeout bounds how long Dial waits for the TCP handshake.
const DefaultDialTimeout = 5 * time.Second

// Re-exported sentinel errors, so callers depend only on this package for
// errors.Is checks against the errors a Client can return.
var (
	ErrAuthFailed           = session.ErrAuthFailed
	ErrInvalidAuthResponse  = session.ErrInvalidAuthResponse
	ErrInvalidPacketID      = session.ErrInvalidPacketID
	ErrCommandEmpty         = session.ErrCommandEmpty
	ErrCommandTooLong       = packet.ErrCommandTooLong
	ErrInvalidPacketPadding = packet.ErrInvalidPacketPadding
	ErrResponseTooSmall     = packet.ErrResponseTooSmall
	ErrProtocolViolation    = packet.ErrProtocolViolation
	ErrConnectionClosed     = packet.ErrConnectionClosed
	ErrNilStrategy          = session.ErrNilStrategy
)

// Client is a connected, authenticated RCON client. It owns one
// *session.Session and the TCP connection beneath it.
type Client struct {
	conn    net.Conn
	session *session.Session
}

type config struct {
	dialTimeout time.Duration
	charset     packet.Charset
	strategy    session.Strategy
	fragmentTO  time.Duration
	readTO      time.Duration
	logger      *slog.Logger
}

func defaultConfig() *config {
	return &config{
		dialTimeout: DefaultDialTimeout,
		charset:     packet.UTF8,
		strategy:    session.NewActiveProbeStrategy(),
		fragmentTO:  session.DefaultFragmentTimeout,
		readTO:      session.DefaultReadTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures Dial.
type Option func(*config)

// WithDialTimeout bounds the TCP connect step. Default 5 seconds.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}

// WithCharset selects the payload charset. Default packet.UTF8.
func WithCharset(cs packet.Charset) Option {
	return func(c *config) { c.charset = cs }
}

// WithFragmentStrategy selects the fragment-resolution strategy. Default
// session.NewActiveProbeStrategy(). A nil s is an argument error: Dial
// rejects it with ErrNilStrategy rather than silently falling back to
// the default.
func WithFragmentStrategy(s session.Strategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithFragmentTimeout sets the TIMEOUT strategy's inactivity window.
// Default 100ms.
func WithFragmentTimeout(d time.Duration) Option {
	return func(c *config) { c.fragmentTO = d }
}

// WithReadTimeout sets the transport read timeout applied to individual
// reads. Default 5 seconds.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) { c.readTO = d }
}

// WithLogger installs a structured event sink. The session logs, at debug
// level, the spurious packet it discards before an auth result and any
// discarded type-4 quirk packet; it logs no other events. Default
// discards all events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// Dial connects to addr over TCP, authenticates with password, and
// returns a ready-to-use Client. On any failure the dialed connection,
// if one was established, is closed before returning.
func Dial(addr, password string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.strategy == nil {
		return nil, fmt.Errorf("rcon: %w", ErrNilStrategy)
	}

	conn, err := net.DialTimeout("tcp", addr, cfg.dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("rcon: dial: %w", err)
	}

	sess := session.New(conn,
		session.WithCharset(cfg.charset),
		session.WithStrategy(cfg.strategy),
		session.WithFragmentTimeout(cfg.fragmentTO),
		session.WithReadTimeout(cfg.readTO),
		session.WithLogger(cfg.logger),
	)

	client := &Client{conn: conn, session: sess}

	if err := client.session.TryAuthenticate(password); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			return nil, fmt.Errorf("rcon: %w (while handling: %w)", closeErr, err)
		}
		return nil, err
	}

	return client, nil
}

// Execute sends command and returns the server's response text.
func (c *Client) Execute(command string) (string, error) {
	return c.session.Execute(command)
}

// LocalAddr returns the local network address of the underlying
// connection.
func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address of the underlying
// connection.
func (c *Client) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection. It is idempotent.
func (c *Client) Close() error {
	return c.session.Close()
}
