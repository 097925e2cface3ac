package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/die-net/socks5d/internal/socks5"
)

// Session phases, as reported in logs and SessionError.
const (
	PhaseNegotiate = "negotiate"
	PhaseRequest   = "request"
	PhaseConnect   = "connect"
	PhaseRelay     = "relay"
	PhaseSession   = "session"
)

// SessionError is the error that ended a session, tagged with the phase it
// happened in.
type SessionError struct {
	Phase string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

type SOCKS5Server struct {
	cfg Config
	log zerolog.Logger

	// ctx is canceled by Shutdown to force-close sessions that outlive the
	// drain period.
	ctx    context.Context
	cancel context.CancelFunc

	sessions sync.WaitGroup
}

func NewSOCKS5Server(cfg Config, log zerolog.Logger) *SOCKS5Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &SOCKS5Server{cfg: cfg, log: log, ctx: ctx, cancel: cancel}
}

// Serve accepts connections on ln and runs a session for each one until ln
// is closed, in which case it returns nil.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			if s.ctx.Err() != nil {
				return err
			}

			// Out of file descriptors and the like: keep accepting.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff = min(2*backoff, time.Second)
			}
			s.log.Error().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			_ = s.ServeConn(c)
		}()
	}
}

// Shutdown waits for running sessions to finish. If ctx ends first, the
// remaining sessions are force-closed and ctx's error is returned once they
// have exited. The listener must be closed separately.
func (s *SOCKS5Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// ServeConn runs one session on conn and closes it. The error that ended the
// session is logged and returned as a *SessionError; a session that relayed
// to completion returns nil.
func (s *SOCKS5Server) ServeConn(conn net.Conn) (err error) {
	log := s.log.With().
		Str("session", uuid.NewString()).
		Stringer("client", conn.RemoteAddr()).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			err = &SessionError{Phase: PhaseSession, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			logSessionError(log, err)
		}
	}()

	return s.serve(conn, log)
}

func (s *SOCKS5Server) serve(conn net.Conn, log zerolog.Logger) error {
	defer conn.Close()

	// Shutdown's forced close has to reach sessions still in the handshake.
	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer stop()

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	methods, err := socks5.Negotiate(conn)
	if err != nil {
		return &SessionError{Phase: PhaseNegotiate, Err: err}
	}
	log.Debug().Hex("methods", methods).Msg("negotiated")

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		return &SessionError{Phase: PhaseRequest, Err: err}
	}
	_ = conn.SetDeadline(time.Time{})

	log = log.With().Stringer("target", req.Target).Logger()
	log.Info().Str("phase", PhaseConnect).Msg("connect requested")

	up, err := Connect(s.ctx, s.cfg.Dialer, conn, req.Target)
	if err != nil {
		return &SessionError{Phase: PhaseConnect, Err: err}
	}
	log.Info().Stringer("bound", up.LocalAddr()).Msg("connected")

	stats, err := Relay(s.ctx, conn, up, log, s.cfg.LogReads)
	result := "ok"
	if err != nil {
		result = outcome(err)
	}
	log.Info().
		Str("phase", PhaseRelay).
		Str("outcome", result).
		Int64("sent", stats.ClientToTarget).
		Int64("received", stats.TargetToClient).
		Msg("session closed")
	if err != nil {
		return &SessionError{Phase: PhaseRelay, Err: err}
	}
	return nil
}

func logSessionError(log zerolog.Logger, err error) {
	phase := PhaseSession
	var se *SessionError
	if errors.As(err, &se) {
		phase = se.Phase
	}

	log.Warn().
		Str("phase", phase).
		Str("outcome", outcome(err)).
		Err(err).
		Msg("session failed")
}

// outcome is a short, stable label for err suitable for log aggregation.
func outcome(err error) string {
	switch {
	case errors.Is(err, socks5.ErrUnsupportedVersion), errors.Is(err, socks5.ErrInvalidVersion):
		return "bad_version"
	case errors.Is(err, socks5.ErrNoAcceptableAuth):
		return "no_acceptable_auth"
	case errors.Is(err, socks5.ErrUnsupportedCommand):
		return "unsupported_command"
	case errors.Is(err, socks5.ErrMalformedRequest):
		return "malformed_request"
	case errors.Is(err, socks5.ErrUnsupportedAddressType):
		return "unsupported_address_type"
	case errors.Is(err, socks5.ErrTruncatedInput):
		return "truncated"
	case errors.Is(err, socks5.ErrConnectFailed):
		return "connect_failed"
	case errors.Is(err, context.Canceled):
		return "shutdown"
	case errors.As(err, new(*RelayError)):
		return "relay_error"
	default:
		return "error"
	}
}
