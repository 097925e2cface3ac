package dialer

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/die-net/socks5d/internal/testutil"
)

func TestSSHProxyDialerMultiplexes(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echo1 := testutil.StartEchoTCPServer(t, ctx)
	defer echo1.Close()
	echo2 := testutil.StartEchoTCPServer(t, ctx)
	defer echo2.Close()

	sshLn := testutil.StartSSHForwardServer(t, ctx, "user", "pass")

	d, err := NewSSHProxyDialer(Config{DialTimeout: 2 * time.Second}, sshLn.Addr().String(), "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	c1, err := d.DialContext(ctx, "tcp", echo1.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEcho(t, c1, c1, []byte("hello"))
	_ = c1.Close()

	first := d.client

	c2, err := d.DialContext(ctx, "tcp", echo2.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	testutil.AssertEcho(t, c2, c2, []byte("hello2"))

	if d.client != first {
		t.Fatal("second dial did not reuse the ssh transport")
	}
}

func TestSSHProxyDialerTargetRefused(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sshLn := testutil.StartSSHForwardServer(t, ctx, "user", "pass")

	d, err := NewSSHProxyDialer(Config{DialTimeout: 2 * time.Second}, sshLn.Addr().String(), "user", "pass")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	_, err = d.DialContext(ctx, "tcp", testutil.FreeAddr(t))
	var openErr *ssh.OpenChannelError
	if !errors.As(err, &openErr) || openErr.Reason != ssh.ConnectionFailed {
		t.Fatalf("expected ConnectionFailed, got %v", err)
	}
	if d.client == nil {
		t.Fatal("a refused target dropped the ssh transport")
	}
}

func TestSSHProxyDialerBadPassword(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sshLn := testutil.StartSSHForwardServer(t, ctx, "user", "pass")

	d, err := NewSSHProxyDialer(Config{DialTimeout: 2 * time.Second}, sshLn.Addr().String(), "user", "wrong")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	if _, err := d.DialContext(ctx, "tcp", "127.0.0.1:9"); err == nil {
		t.Fatal("expected authentication failure")
	}
}
