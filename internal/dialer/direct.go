package dialer

import (
	"context"
	"fmt"
	"net"
)

// directDialer connects straight to the target with TCP_NODELAY set, so
// small relayed writes are not held back by Nagle.
type directDialer struct {
	net.Dialer
}

func NewDirectDialer(cfg Config) Dialer {
	return &directDialer{Dialer: net.Dialer{
		Timeout:         cfg.DialTimeout,
		KeepAliveConfig: cfg.KeepAlive,
	}}
}

func (d *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	conn, err := d.Dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("direct dial %s: %w", address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("direct dial %s: set nodelay: %w", address, err)
		}
	}
	return conn, nil
}
