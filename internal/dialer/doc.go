// Package dialer provides the outbound dialers used to reach CONNECT targets.
//
// Targets are reached directly, through an upstream SOCKS5 proxy, or over
// channels of a shared SSH transport. All implement the same DialContext
// method as net.Dialer.
package dialer
