package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"

	internalssh "github.com/die-net/socks5d/internal/ssh"
)

// SSHProxyDialer reaches targets through "direct-tcpip" channels on a single
// shared SSH transport, like ssh -D. The transport is dialed on first use
// and redialed once when opening a channel fails for a reason other than the
// target refusing.
type SSHProxyDialer struct {
	sshAddr string
	cfg     internalssh.ClientConfig
	direct  Dialer

	mu     sync.Mutex
	client *ssh.Client
	sf     singleflight.Group
}

func NewSSHProxyDialer(cfg Config, sshAddr, user, pass string) (*SSHProxyDialer, error) {
	signers, err := internalssh.LoadSigners(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh upstream: %w", err)
	}
	hostKeys, err := internalssh.NewHostKeyCallback(cfg.SSHKnownHostsPath, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("ssh upstream: %w", err)
	}

	clientCfg := internalssh.ClientConfig{
		User:             user,
		Password:         pass,
		Signers:          signers,
		HostKeyCallback:  hostKeys,
		HandshakeTimeout: cfg.DialTimeout,
	}
	if err := clientCfg.Validate(); err != nil {
		return nil, fmt.Errorf("ssh upstream: %w", err)
	}

	return &SSHProxyDialer{
		sshAddr: sshAddr,
		cfg:     clientCfg,
		direct:  NewDirectDialer(cfg),
	}, nil
}

// DialContext opens a channel to address. Canceling ctx closes only the
// returned channel, never the shared transport.
func (d *SSHProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("ssh upstream dial %s %s: unsupported network", network, address)
	}

	client, err := d.transport(ctx)
	if err != nil {
		return nil, err
	}

	conn, err := client.DialContext(ctx, "tcp", address)
	if err != nil {
		// The transport is fine; the far end refused.
		var openErr *ssh.OpenChannelError
		if errors.As(err, &openErr) || ctx.Err() != nil {
			return nil, fmt.Errorf("ssh upstream dial %s: %w", address, err)
		}

		d.dropTransport(client)
		if client, err = d.transport(ctx); err != nil {
			return nil, err
		}
		if conn, err = client.DialContext(ctx, "tcp", address); err != nil {
			return nil, fmt.Errorf("ssh upstream dial %s: %w", address, err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	return &sshChannelConn{Conn: conn, stop: stop}, nil
}

// transport returns the shared client, dialing it if needed. Concurrent
// callers share one dial, which outlives any single caller's ctx.
func (d *SSHProxyDialer) transport(ctx context.Context) (*ssh.Client, error) {
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client != nil {
		return client, nil
	}

	ch := d.sf.DoChan(d.sshAddr, func() (any, error) {
		d.mu.Lock()
		if d.client != nil {
			c := d.client
			d.mu.Unlock()
			return c, nil
		}
		d.mu.Unlock()

		conn, err := d.direct.DialContext(context.Background(), "tcp", d.sshAddr)
		if err != nil {
			return nil, fmt.Errorf("ssh upstream: %w", err)
		}
		c, err := internalssh.Handshake(conn, d.sshAddr, d.cfg)
		if err != nil {
			return nil, fmt.Errorf("ssh upstream: %w", err)
		}

		d.mu.Lock()
		d.client = c
		d.mu.Unlock()
		return c, nil
	})

	select {
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ssh.Client), nil
	}
}

// dropTransport forgets client if it is still the shared one and closes it.
func (d *SSHProxyDialer) dropTransport(client *ssh.Client) {
	d.mu.Lock()
	if d.client == client {
		d.client = nil
	}
	d.mu.Unlock()
	_ = client.Close()
}

// Close tears down the shared transport and every channel on it.
func (d *SSHProxyDialer) Close() error {
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

// sshChannelConn is one "direct-tcpip" channel.
type sshChannelConn struct {
	net.Conn
	stop func() bool
}

func (c *sshChannelConn) Close() error {
	c.stop()
	return c.Conn.Close()
}

// CloseWrite sends EOF on the channel so the target sees a half-close.
func (c *sshChannelConn) CloseWrite() error {
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return c.Close()
}
