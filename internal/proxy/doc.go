// Package proxy implements the socks5d SOCKS5 server: the accept loop, the
// per-connection session (negotiate, request, connect, relay), and the
// bidirectional relay with half-close propagation.
package proxy
