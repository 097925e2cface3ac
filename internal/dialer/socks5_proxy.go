package dialer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/die-net/socks5d/internal/socks5"
)

// SOCKS5ProxyDialer reaches targets through an upstream SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	auth      socks5.Auth
	direct    Dialer
}

func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, user, pass string) *SOCKS5ProxyDialer {
	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		auth:      socks5.Auth{Username: user, Password: pass},
		direct:    NewDirectDialer(cfg),
	}
}

// DialContext connects to the upstream and asks it to CONNECT to address,
// which must be a literal IP and port. The returned conn is the raw TCP
// connection to the upstream, positioned after the upstream's reply.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	target, err := socks5.ParseEndpoint(address)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, err)
	}

	conn, err := d.direct.DialContext(ctx, "tcp", d.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	if d.cfg.DialTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.cfg.DialTimeout))
	}
	// Abort the handshake if ctx is canceled while waiting on the upstream.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	if _, err := socks5.ClientDial(conn, d.auth, target); err != nil {
		stop()
		_ = conn.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s via %s: %w", address, d.proxyAddr, err)
	}

	if !stop() {
		_ = conn.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", address, context.Cause(ctx))
	}
	_ = conn.SetDeadline(time.Time{})

	return conn, nil
}
