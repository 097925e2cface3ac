package proxy

import (
	"context"
	"fmt"
	"net"
	"syscall"
	"time"

	proxyproto "github.com/pires/go-proxyproto"
)

// ListenOptions configures the client-facing listener.
type ListenOptions struct {
	KeepAlive net.KeepAliveConfig

	// ReusePort sets SO_REUSEPORT so several processes can share addr.
	ReusePort bool

	// ProxyProtocol expects a PROXY protocol v1 or v2 header on every
	// accepted connection and reports the address it carries as RemoteAddr.
	ProxyProtocol      bool
	ProxyHeaderTimeout time.Duration
}

// ListenTCP listens on the given network/address and returns a net.Listener
// that applies opts to accepted TCP connections.
func ListenTCP(network, addr string, opts ListenOptions) (net.Listener, error) {
	lc := net.ListenConfig{}
	if opts.ReusePort {
		lc.Control = func(_, _ string, c syscall.RawConn) error {
			var ctrlErr error
			if err := c.Control(func(fd uintptr) {
				ctrlErr = setReusePort(fd)
			}); err != nil {
				return err
			}
			return ctrlErr
		}
	}

	ln, err := lc.Listen(context.Background(), network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	var l net.Listener = &KeepAliveListener{Listener: ln, KeepAliveConfig: opts.KeepAlive}
	if opts.ProxyProtocol {
		l = &proxyproto.Listener{Listener: l, ReadHeaderTimeout: opts.ProxyHeaderTimeout}
	}

	return l, nil
}

// KeepAliveListener wraps a net.Listener and applies KeepAliveConfig and
// TCP_NODELAY to any accepted *net.TCPConn.
type KeepAliveListener struct {
	net.Listener
	net.KeepAliveConfig
}

func (l *KeepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.KeepAliveConfig)
		_ = tc.SetNoDelay(true)
	}

	return conn, nil
}
