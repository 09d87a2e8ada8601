package session

import (
	"errors"
	"io"
	"net"
	"strings"

	"github.com/cavarest/rcon/packet"
)

// probeCommandType is the packet type used for the ActiveProbe sentinel
// command. It is client-to-server EXEC_COMMAND, exactly like a real
// command, distinguished only by its fresh id and empty payload.
const probeCommandType = packet.ExecCommand

// errEOF aliases io.EOF for readability at call sites that are reasoning
// about "end of stream", not file I/O.
var errEOF = io.EOF

// Strategy decides how a Session assembles the (possibly multi-packet)
// response to one command into a single string. It is a closed set of
// three variants; the interface itself is unexported-method-only so no
// other implementation can be substituted from outside the package.
type Strategy interface {
	resolve(s *Session, requestID int32) (string, error)
}

// NewPacketSizeStrategy returns the heuristic strategy: concatenate
// fragments until one arrives whose wire payload is strictly shorter
// than packet.MaxResponsePayload bytes.
//
// This is a heuristic, not a reliable signal: a response whose total
// size is an exact multiple of the response payload ceiling never
// produces a short fragment and the strategy hangs waiting for one that
// will never come. Prefer NewActiveProbeStrategy for new code; this is
// retained only for compatibility with servers or callers that
// specifically expect the PACKET_SIZE heuristic.
func NewPacketSizeStrategy() Strategy {
	return packetSizeStrategy{}
}

// NewTimeoutStrategy returns the quiescence-based strategy: concatenate
// fragments, resetting an inactivity window on every successful read,
// and treat the response as complete when a read times out or the
// connection reaches end of stream. Every read, including the first,
// waits at most the session's fragment timeout, which replaces the read
// timeout as the deadline; a timed-out read is a completion signal, not
// an error.
func NewTimeoutStrategy() Strategy {
	return timeoutStrategy{}
}

// NewActiveProbeStrategy returns the deterministic default strategy:
// after the real command, unconditionally send a second, empty
// EXEC_COMMAND with a fresh id, and treat its echo as the end-of-response
// marker. Adds exactly one round trip per command and does not depend on
// timing.
func NewActiveProbeStrategy() Strategy {
	return activeProbeStrategy{}
}

type packetSizeStrategy struct{}

func (packetSizeStrategy) resolve(s *Session, requestID int32) (string, error) {
	var sb strings.Builder
	for {
		p, err := s.readRawPacket()
		if err != nil {
			return sb.String(), err
		}
		if err := validateFragment(p, requestID); err != nil {
			return sb.String(), err
		}
		sb.WriteString(p.Payload)

		if s.wireLen(p) < packet.MaxResponsePayload {
			return sb.String(), nil
		}
	}
}

type timeoutStrategy struct{}

func (timeoutStrategy) resolve(s *Session, requestID int32) (string, error) {
	var sb strings.Builder
	for {
		if err := s.setReadDeadline(s.fragmentTimeout); err != nil {
			return sb.String(), err
		}

		p, err := s.readRawPacket()
		if err != nil {
			if isTimeoutOrEOF(err) {
				return sb.String(), nil
			}
			return sb.String(), err
		}

		if err := validateFragment(p, requestID); err != nil {
			return sb.String(), err
		}
		sb.WriteString(p.Payload)
	}
}

func isTimeoutOrEOF(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, errEOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

type activeProbeStrategy struct{}

func (activeProbeStrategy) resolve(s *Session, requestID int32) (string, error) {
	var sb strings.Builder

	first, err := s.readRawPacket()
	if err != nil {
		return sb.String(), err
	}
	if err := validateFragment(first, requestID); err != nil {
		return sb.String(), err
	}
	sb.WriteString(first.Payload)

	probeID := s.nextID()
	if err := s.writePacket(probeID, probeCommandType, ""); err != nil {
		return sb.String(), err
	}

	for {
		p, err := s.readRawPacket()
		if err != nil {
			// Surface the error rather than swallowing it: a read failure
			// after the probe went out still means the connection is
			// unhealthy. Partial data collected so far is returned
			// alongside it so a caller doesn't have to re-issue the
			// command to see what did arrive.
			return sb.String(), err
		}
		if p.RequestID == probeID {
			return sb.String(), nil
		}
		if err := validateFragment(p, requestID); err != nil {
			return sb.String(), err
		}
		sb.WriteString(p.Payload)
	}
}
