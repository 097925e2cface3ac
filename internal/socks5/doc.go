// Package socks5 implements the server side of the SOCKS5 handshake used by
// socks5d: method negotiation, CONNECT request parsing, reply encoding, and the
// IPv4/IPv6 endpoint wire codec.
//
// Only the "no authentication" method, the CONNECT command, and literal IPv4 or
// IPv6 targets are accepted. Every rejection that RFC 1928 defines a reply code
// for is answered on the wire before the error is returned, so callers only
// need to close the connection.
//
// A small client (ClientDial) built on github.com/txthinking/socks5 message
// types is included for chaining through an upstream SOCKS5 proxy.
package socks5
