package proxy

import (
	"time"

	"github.com/die-net/socks5d/internal/dialer"
)

type Config struct {
	// NegotiationTimeout bounds the handshake and request phase of a session.
	// Zero means no deadline.
	NegotiationTimeout time.Duration

	// LogReads emits a debug event for every relayed read.
	LogReads bool

	Dialer dialer.Dialer
}
