package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Relay directions.
const (
	ClientToTarget = "client->target"
	TargetToClient = "target->client"
)

// RelayError is an I/O failure in one relay direction.
type RelayError struct {
	Direction string
	Err       error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay %s: %v", e.Direction, e.Err)
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// RelayStats counts the bytes written in each direction.
type RelayStats struct {
	ClientToTarget int64
	TargetToClient int64
}

// Relay copies client->target and target->client concurrently until both
// directions have ended, then closes both connections.
//
// A direction ends on EOF or on the first read or write error, and either way
// half-closes its destination so the peer sees EOF. The other direction keeps
// running until it ends on its own. Errors from both directions are joined.
// Canceling ctx closes both connections immediately.
func Relay(ctx context.Context, client, target net.Conn, log zerolog.Logger, logReads bool) (RelayStats, error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = client.Close()
			_ = target.Close()
		})
	}
	defer closeBoth()

	stop := context.AfterFunc(ctx, closeBoth)

	var (
		g     errgroup.Group
		stats RelayStats
		errs  [2]error
	)

	g.Go(func() error {
		stats.ClientToTarget, errs[0] = pipe(target, client, ClientToTarget, log, logReads)
		return errs[0]
	})

	g.Go(func() error {
		stats.TargetToClient, errs[1] = pipe(client, target, TargetToClient, log, logReads)
		return errs[1]
	})

	_ = g.Wait()

	stop()

	// Both directions reaching EOF is a clean finish even if ctx was canceled
	// in the meantime.
	err := errors.Join(errs[0], errs[1])
	if err != nil && ctx.Err() != nil {
		return stats, fmt.Errorf("relay aborted: %w", context.Cause(ctx))
	}
	return stats, err
}

// pipe copies src to dst until src reaches EOF or an error occurs, then
// half-closes dst.
func pipe(dst, src net.Conn, dir string, log zerolog.Logger, logReads bool) (n int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RelayError{Direction: dir, Err: fmt.Errorf("panic: %v", r)}
		}
		closeWrite(dst)
	}()

	bp := relayBuffers.Get()
	defer relayBuffers.Put(bp)
	buf := *bp

	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			if logReads {
				log.Debug().Str("direction", dir).Int("bytes", nr).Msg("relay read")
			}

			nw, werr := dst.Write(buf[:nr])
			n += int64(nw)
			if werr == nil && nw != nr {
				werr = io.ErrShortWrite
			}
			if werr != nil {
				return n, &RelayError{Direction: dir, Err: fmt.Errorf("write: %w", werr)}
			}
		}

		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				log.Debug().Str("direction", dir).Int64("bytes", n).Msg("relay eof")
				return n, nil
			}
			return n, &RelayError{Direction: dir, Err: fmt.Errorf("read: %w", rerr)}
		}
	}
}

// closeWrite shuts down the write side of c. Connections that cannot
// half-close are closed outright so the peer still sees EOF.
func closeWrite(c net.Conn) {
	type closeWriter interface {
		CloseWrite() error
	}
	type rawConner interface {
		Raw() net.Conn
	}

	for cur := c; ; {
		if cw, ok := cur.(closeWriter); ok {
			_ = cw.CloseWrite()
			return
		}
		rc, ok := cur.(rawConner)
		if !ok {
			break
		}
		cur = rc.Raw()
	}

	_ = c.Close()
}
