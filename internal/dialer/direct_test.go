package dialer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/die-net/socks5d/internal/testutil"
)

func TestDirectDialer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	d := NewDirectDialer(Config{DialTimeout: 2 * time.Second})
	conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, ok := conn.(*net.TCPConn); !ok {
		t.Fatalf("got %T, want *net.TCPConn", conn)
	}
	testutil.AssertEcho(t, conn, conn, []byte("hello"))
}

func TestDirectDialerRefused(t *testing.T) {
	d := NewDirectDialer(Config{DialTimeout: 2 * time.Second})
	if _, err := d.DialContext(context.Background(), "tcp", testutil.FreeAddr(t)); err == nil {
		t.Fatal("expected error")
	}
}
