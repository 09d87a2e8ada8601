package session_test

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cavarest/rcon/packet"
	"github.com/cavarest/rcon/rcontest"
	"github.com/cavarest/rcon/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, addr string, opts ...session.Option) *session.Session {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return session.New(conn, opts...)
}

func TestAuthenticateSuccess(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	ok, err := s.Authenticate("cavarest")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticateFailureSentinel(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	ok, err := s.Authenticate("wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// The stub closes a connection after a failed auth, so retry on a
	// fresh one.
	err = dial(t, server.Addr()).TryAuthenticate("wrong")
	assert.ErrorIs(t, err, session.ErrAuthFailed)
}

func TestAuthenticateQuirk(t *testing.T) {
	server := rcontest.NewServer(rcontest.AuthQuirkHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	ok, err := s.Authenticate("cavarest")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExecuteRequestIDsIncrease(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	ok, err := s.Authenticate("cavarest")
	require.NoError(t, err)
	require.True(t, ok)

	out1, err := s.Execute("one")
	require.NoError(t, err)
	assert.Equal(t, "one", out1)

	out2, err := s.Execute("two")
	require.NoError(t, err)
	assert.Equal(t, "two", out2)
}

func TestExecuteCommandEmpty(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	_, err = s.Execute("")
	assert.ErrorIs(t, err, session.ErrCommandEmpty)
}

func TestExecuteCommandTooLong(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	_, err = s.Execute(strings.Repeat("x", packet.MaxRequestPayload+1))
	assert.ErrorIs(t, err, packet.ErrCommandTooLong)
}

func TestFragmentAssemblyAllStrategies(t *testing.T) {
	fragments := []string{strings.Repeat("a", 4096), strings.Repeat("b", 4096), strings.Repeat("c", 7)}
	want := rcontest.JoinFragments(fragments)

	strategies := map[string]session.Strategy{
		"packet_size":  session.NewPacketSizeStrategy(),
		"timeout":      session.NewTimeoutStrategy(),
		"active_probe": session.NewActiveProbeStrategy(),
	}

	for name, strat := range strategies {
		t.Run(name, func(t *testing.T) {
			var server *rcontest.Server
			if name == "active_probe" {
				server = rcontest.NewServer(rcontest.ActiveProbeHandler("cavarest", fragments))
			} else {
				server = rcontest.NewServer(rcontest.FragmentedResponseHandler("cavarest", fragments))
			}
			defer server.Close()

			s := dial(t, server.Addr(),
				session.WithStrategy(strat),
				session.WithFragmentTimeout(50*time.Millisecond),
				session.WithReadTimeout(2*time.Second),
			)
			ok, err := s.Authenticate("cavarest")
			require.NoError(t, err)
			require.True(t, ok)

			got, err := s.Execute("x")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestActiveProbeBoundary(t *testing.T) {
	server := rcontest.NewServer(rcontest.ActiveProbeHandler("cavarest", []string{"hello"}))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	got, err := s.Execute("greet")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestTimeoutStrategyCompletesOnSilence(t *testing.T) {
	server := rcontest.NewServer(rcontest.SilentAfterFirstHandler("cavarest", "partial"))
	defer server.Close()

	s := dial(t, server.Addr(),
		session.WithStrategy(session.NewTimeoutStrategy()),
		session.WithFragmentTimeout(80*time.Millisecond),
		session.WithReadTimeout(5*time.Second),
	)
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	start := time.Now()
	got, err := s.Execute("status")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "partial", got)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestProtocolViolationWrongResponseType(t *testing.T) {
	server := rcontest.NewServer(rcontest.WrongPhaseTypeHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	_, err = s.Execute("anything")
	assert.ErrorIs(t, err, packet.ErrProtocolViolation)
}

func TestConcurrentSessionsIndependent(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	const n = 8
	errs := make(chan error, n)
	results := make(chan string, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			s := dial(t, server.Addr())
			if _, err := s.Authenticate("cavarest"); err != nil {
				errs <- err
				return
			}
			out, err := s.Execute("ping")
			if err != nil {
				errs <- err
				return
			}
			results <- out
			errs <- nil
		}(i)
	}

	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}
	close(results)
	for out := range results {
		assert.Equal(t, "ping", out)
	}
}

func TestExecuteConcurrentOnSharedSessionNoInterleaving(t *testing.T) {
	server := rcontest.NewServer(rcontest.IDEchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	const n = 16
	type result struct {
		cmd string
		out string
		err error
	}
	results := make(chan result, n)

	for i := 0; i < n; i++ {
		go func(i int) {
			cmd := fmt.Sprintf("cmd-%d", i)
			out, err := s.Execute(cmd)
			results <- result{cmd: cmd, out: out, err: err}
		}(i)
	}

	seenIDs := make(map[int64]bool, n)
	for i := 0; i < n; i++ {
		r := <-results
		require.NoError(t, r.err)

		parts := strings.SplitN(r.out, "|", 2)
		require.Len(t, parts, 2, "malformed echo %q", r.out)
		assert.Equal(t, r.cmd, parts[0], "response payload must match the command that produced it")

		id, perr := strconv.ParseInt(parts[1], 10, 64)
		require.NoError(t, perr)
		assert.False(t, seenIDs[id], "request id %d reused across concurrent Execute calls", id)
		seenIDs[id] = true
	}
}

func TestExecuteAfterCloseReturnsConnectionClosed(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close()) // idempotent

	_, err = s.Execute("ping")
	assert.ErrorIs(t, err, packet.ErrConnectionClosed)

	_, err = s.Authenticate("cavarest")
	assert.ErrorIs(t, err, packet.ErrConnectionClosed)
}

func TestActiveProbeSurfacesErrorAfterProbeSent(t *testing.T) {
	server := rcontest.NewServer(rcontest.ActiveProbeDropHandler("cavarest", []string{"partial-out"}))
	defer server.Close()

	s := dial(t, server.Addr())
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	got, err := s.Execute("status")
	assert.Error(t, err)
	assert.Equal(t, "partial-out", got)
}

func TestWithStrategyNilIsArgumentError(t *testing.T) {
	server := rcontest.NewServer(rcontest.EchoHandler("cavarest"))
	defer server.Close()

	s := dial(t, server.Addr(), session.WithStrategy(nil))
	_, err := s.Authenticate("cavarest")
	require.NoError(t, err)

	_, err = s.Execute("ping")
	assert.ErrorIs(t, err, session.ErrNilStrategy)
}
