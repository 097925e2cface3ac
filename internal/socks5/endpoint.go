package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
)

// Endpoint is an IPv4 or IPv6 address plus port, as carried in the DST and BND
// fields of SOCKS5 messages. The zero Endpoint is invalid and encodes as
// 0.0.0.0:0.
type Endpoint struct {
	addr netip.Addr
	port uint16
}

// EndpointFrom4 returns the IPv4 endpoint ip:port.
func EndpointFrom4(ip [4]byte, port uint16) Endpoint {
	return Endpoint{addr: netip.AddrFrom4(ip), port: port}
}

// EndpointFrom16 returns the IPv6 endpoint [ip]:port. IPv4-mapped addresses
// stay IPv6.
func EndpointFrom16(ip [16]byte, port uint16) Endpoint {
	return Endpoint{addr: netip.AddrFrom16(ip), port: port}
}

// EndpointFromAddrPort converts ap, dropping any IPv6 zone since the wire
// format has no room for it.
func EndpointFromAddrPort(ap netip.AddrPort) (Endpoint, error) {
	if !ap.Addr().IsValid() {
		return Endpoint{}, fmt.Errorf("invalid address %v", ap)
	}
	return Endpoint{addr: ap.Addr().WithZone(""), port: ap.Port()}, nil
}

// EndpointFromNetAddr converts the local or remote address of a connection.
// IPv4-mapped IPv6 addresses are reported as IPv4.
func EndpointFromNetAddr(a net.Addr) (Endpoint, error) {
	if a == nil {
		return Endpoint{}, errors.New("nil address")
	}

	var ap netip.AddrPort
	if ta, ok := a.(*net.TCPAddr); ok {
		ap = ta.AddrPort()
	} else {
		var err error
		ap, err = netip.ParseAddrPort(a.String())
		if err != nil {
			return Endpoint{}, fmt.Errorf("parse %q: %w", a.String(), err)
		}
	}

	return EndpointFromAddrPort(netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()))
}

// ParseEndpoint parses a literal "ip:port" or "[ip]:port" string.
func ParseEndpoint(s string) (Endpoint, error) {
	ap, err := netip.ParseAddrPort(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint: %w", err)
	}
	return EndpointFromAddrPort(ap)
}

func (e Endpoint) IsValid() bool {
	return e.addr.IsValid()
}

func (e Endpoint) Addr() netip.Addr {
	return e.addr
}

func (e Endpoint) Port() uint16 {
	return e.port
}

func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.addr, e.port)
}

// AddressType returns ATYPIPv4 or ATYPIPv6.
func (e Endpoint) AddressType() byte {
	if e.addr.Is6() {
		return ATYPIPv6
	}
	return ATYPIPv4
}

// String returns the endpoint in a form accepted by net.Dial.
func (e Endpoint) String() string {
	if !e.addr.IsValid() {
		return netip.AddrPortFrom(netip.IPv4Unspecified(), e.port).String()
	}
	return e.AddrPort().String()
}

// AppendTo appends the ATYP byte, the address bytes and the big-endian port.
func (e Endpoint) AppendTo(b []byte) []byte {
	switch {
	case e.addr.Is6():
		a := e.addr.As16()
		b = append(b, ATYPIPv6)
		b = append(b, a[:]...)
	case e.addr.Is4():
		a := e.addr.As4()
		b = append(b, ATYPIPv4)
		b = append(b, a[:]...)
	default:
		b = append(b, ATYPIPv4, 0, 0, 0, 0)
	}
	return binary.BigEndian.AppendUint16(b, e.port)
}

// ReadEndpoint reads the address and port that follow an ATYP byte: 6 bytes
// for IPv4, 18 for IPv6. Callers must reject other address types first.
func ReadEndpoint(r io.Reader, atyp byte) (Endpoint, error) {
	switch atyp {
	case ATYPIPv4:
		var b [4 + 2]byte
		if err := readFull(r, b[:]); err != nil {
			return Endpoint{}, fmt.Errorf("read ipv4 endpoint: %w", err)
		}
		return EndpointFrom4([4]byte(b[:4]), binary.BigEndian.Uint16(b[4:])), nil
	case ATYPIPv6:
		var b [16 + 2]byte
		if err := readFull(r, b[:]); err != nil {
			return Endpoint{}, fmt.Errorf("read ipv6 endpoint: %w", err)
		}
		return EndpointFrom16([16]byte(b[:16]), binary.BigEndian.Uint16(b[16:])), nil
	default:
		return Endpoint{}, fmt.Errorf("%w: %#02x", ErrUnsupportedAddressType, atyp)
	}
}
