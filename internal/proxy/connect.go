package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/die-net/socks5d/internal/dialer"
	"github.com/die-net/socks5d/internal/socks5"
)

// Connect dials target and answers the client. On success the client has
// been sent [5, 0, 0] plus the outbound socket's local endpoint, and the
// outbound conn is returned for relaying. On failure the client has been
// sent [5, HostUnreachable] and nothing is left open.
func Connect(ctx context.Context, d dialer.Dialer, client io.Writer, target socks5.Endpoint) (net.Conn, error) {
	up, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		err = fmt.Errorf("%w: %w", socks5.ErrConnectFailed, err)
		if werr := socks5.WriteErrorReply(client, socks5.ReplyHostUnreachable); werr != nil {
			err = errors.Join(err, werr)
		}
		return nil, err
	}

	// Upstream proxies may hand back conns without an IP local address;
	// those report 0.0.0.0:0.
	bound, _ := socks5.EndpointFromNetAddr(up.LocalAddr())

	if err := socks5.WriteSuccessReply(client, bound); err != nil {
		_ = up.Close()
		return nil, err
	}
	return up, nil
}
