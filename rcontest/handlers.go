package rcontest

import (
	"fmt"
	"strings"

	"github.com/cavarest/rcon/packet"
)

// EchoHandler authenticates connections whose AUTH payload equals
// password and then, for every EXEC_COMMAND, replies with a single
// RESPONSE_VALUE echoing the command text back as the payload.
func EchoHandler(password string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		for {
			req, err := c.ReadPacket()
			if err != nil {
				return
			}
			if err := c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, req.Payload)); err != nil {
				return
			}
		}
	}
}

// AuthQuirkHandler authenticates like EchoHandler but first sends a
// spurious empty RESPONSE_VALUE before the real AUTH_RESPONSE, matching
// the quirk some Source-family servers exhibit.
func AuthQuirkHandler(password string) Handler {
	return func(c *Conn) {
		req, err := c.ReadPacket()
		if err != nil {
			return
		}
		_ = c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, ""))
		if req.Payload != password {
			_ = c.WritePacket(packet.New(packet.InvalidRequestID, packet.AuthResponse, ""))
			return
		}
		if err := c.WritePacket(packet.New(req.RequestID, packet.AuthResponse, "")); err != nil {
			return
		}
		for {
			cmd, err := c.ReadPacket()
			if err != nil {
				return
			}
			if err := c.WritePacket(packet.New(cmd.RequestID, packet.ResponseValue, cmd.Payload)); err != nil {
				return
			}
		}
	}
}

// FragmentedResponseHandler authenticates like EchoHandler and then
// answers every command with the given payload fragments, each sent as
// its own RESPONSE_VALUE packet sharing the command's request id, with
// no end-of-stream marker between them.
func FragmentedResponseHandler(password string, fragments []string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		for {
			req, err := c.ReadPacket()
			if err != nil {
				return
			}
			for _, frag := range fragments {
				if err := c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, frag)); err != nil {
					return
				}
			}
		}
	}
}

// SilentAfterFirstHandler authenticates like EchoHandler, sends exactly
// one RESPONSE_VALUE fragment per command, and then goes silent instead
// of sending anything further — including never replying to an
// ActiveProbe probe packet. Used to exercise TimeoutStrategy's
// quiescence detection.
func SilentAfterFirstHandler(password, firstFragment string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		req, err := c.ReadPacket()
		if err != nil {
			return
		}
		_ = c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, firstFragment))
		// Deliberately stop responding; the connection stays open.
		for {
			if _, err := c.ReadPacket(); err != nil {
				return
			}
		}
	}
}

// WrongPhaseTypeHandler authenticates like EchoHandler and then replies
// to every EXEC_COMMAND with an AUTH_RESPONSE instead of a RESPONSE_VALUE,
// to exercise protocol-violation detection.
func WrongPhaseTypeHandler(password string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		for {
			req, err := c.ReadPacket()
			if err != nil {
				return
			}
			if err := c.WritePacket(packet.New(req.RequestID, packet.AuthResponse, "")); err != nil {
				return
			}
		}
	}
}

// ActiveProbeHandler authenticates like EchoHandler and answers every
// real command with the given fragments, correctly echoing back a probe
// EXEC_COMMAND (identified by its empty payload and fresh id) once the
// real fragments have been sent — the behavior a conforming server
// exhibits under the ACTIVE_PROBE strategy.
func ActiveProbeHandler(password string, fragments []string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		for {
			req, err := c.ReadPacket()
			if err != nil {
				return
			}
			if req.Payload == "" {
				// This is itself a probe for a command we've already
				// answered (shouldn't normally happen first), echo it.
				_ = c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, ""))
				continue
			}
			for _, frag := range fragments {
				if err := c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, frag)); err != nil {
					return
				}
			}
			probe, err := c.ReadPacket()
			if err != nil {
				return
			}
			if err := c.WritePacket(packet.New(probe.RequestID, packet.ResponseValue, "")); err != nil {
				return
			}
		}
	}
}

// ActiveProbeDropHandler authenticates like EchoHandler, sends the given
// fragments for the first real command, reads the probe EXEC_COMMAND
// that follows it, and then closes the connection without echoing the
// probe back — exercising the case where the connection drops right
// after the probe is sent but before its echo arrives.
func ActiveProbeDropHandler(password string, fragments []string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		req, err := c.ReadPacket()
		if err != nil {
			return
		}
		for _, frag := range fragments {
			if err := c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, frag)); err != nil {
				return
			}
		}
		if _, err := c.ReadPacket(); err != nil {
			return
		}
		// Deliberately close without responding to the probe.
	}
}

// IDEchoHandler authenticates like EchoHandler and replies to every
// EXEC_COMMAND with a payload of "<command>|<request id>", tagging the
// echoed command with the exact request id it arrived on. Used to assert
// that a Session serializing concurrent Execute calls never reuses a
// request id or returns one call's response to another's caller.
func IDEchoHandler(password string) Handler {
	return func(c *Conn) {
		if !authenticate(c, password) {
			return
		}
		for {
			req, err := c.ReadPacket()
			if err != nil {
				return
			}
			payload := fmt.Sprintf("%s|%d", req.Payload, req.RequestID)
			if err := c.WritePacket(packet.New(req.RequestID, packet.ResponseValue, payload)); err != nil {
				return
			}
		}
	}
}

// authenticate drives a single AUTH / AUTH_RESPONSE exchange and
// returns whether it succeeded, closing out the connection on failure.
func authenticate(c *Conn, password string) bool {
	req, err := c.ReadPacket()
	if err != nil {
		return false
	}
	if req.Payload != password {
		_ = c.WritePacket(packet.New(packet.InvalidRequestID, packet.AuthResponse, ""))
		return false
	}
	return c.WritePacket(packet.New(req.RequestID, packet.AuthResponse, "")) == nil
}

// JoinFragments is a small test helper mirroring the concatenation a
// correct client should perform.
func JoinFragments(fragments []string) string {
	return strings.Join(fragments, "")
}
