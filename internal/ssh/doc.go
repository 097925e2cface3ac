// Package ssh holds the client-side pieces of the ssh:// upstream: loading
// signers from a key file or the SSH agent, known_hosts verification with
// trust on first use, and the transport handshake. The dialer multiplexes
// CONNECT targets over one transport as "direct-tcpip" channels, the same
// way ssh -D does.
package ssh
