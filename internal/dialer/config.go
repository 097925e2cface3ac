package dialer

import (
	"net"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	// DialTimeout bounds the TCP connect and, for upstream proxies, the
	// upstream handshake. Zero means no timeout.
	DialTimeout time.Duration
	KeepAlive   net.KeepAliveConfig

	// SSHKeyPath is a private key file, "agent", or empty for password only.
	SSHKeyPath string
	// SSHKnownHostsPath is verified with trust on first use. Empty disables
	// host key checking.
	SSHKnownHostsPath string

	Log zerolog.Logger
}
