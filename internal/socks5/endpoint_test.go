package socks5

import (
	"bytes"
	"errors"
	"net"
	"testing"
)

func TestEndpointRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		ep   Endpoint
		wire []byte
	}{
		{
			name: "ipv4 zero",
			ep:   EndpointFrom4([4]byte{0, 0, 0, 0}, 0),
			wire: []byte{0x01, 0, 0, 0, 0, 0x00, 0x00},
		},
		{
			name: "ipv4 broadcast max port",
			ep:   EndpointFrom4([4]byte{255, 255, 255, 255}, 65535),
			wire: []byte{0x01, 255, 255, 255, 255, 0xff, 0xff},
		},
		{
			name: "ipv4 loopback 8080",
			ep:   EndpointFrom4([4]byte{127, 0, 0, 1}, 8080),
			wire: []byte{0x01, 127, 0, 0, 1, 0x1f, 0x90},
		},
		{
			name: "ipv6 unspecified",
			ep:   EndpointFrom16([16]byte{}, 0),
			wire: append(append([]byte{0x04}, make([]byte, 16)...), 0x00, 0x00),
		},
		{
			name: "ipv6 all ones",
			ep:   EndpointFrom16([16]byte(bytes.Repeat([]byte{0xff}, 16)), 65535),
			wire: append(append([]byte{0x04}, bytes.Repeat([]byte{0xff}, 16)...), 0xff, 0xff),
		},
		{
			name: "ipv4-mapped ipv6 stays ipv6",
			ep:   EndpointFrom16([16]byte{10: 0xff, 11: 0xff, 12: 192, 13: 0, 14: 2, 15: 1}, 443),
			wire: []byte{0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 192, 0, 2, 1, 0x01, 0xbb},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.ep.AppendTo(nil)
			if !bytes.Equal(got, tt.wire) {
				t.Fatalf("encode: got %v want %v", got, tt.wire)
			}

			back, err := ReadEndpoint(bytes.NewReader(got[1:]), got[0])
			if err != nil {
				t.Fatal(err)
			}
			if back != tt.ep {
				t.Fatalf("decode: got %v want %v", back, tt.ep)
			}
			if back.AddressType() != tt.wire[0] {
				t.Fatalf("address type: got %d want %d", back.AddressType(), tt.wire[0])
			}
		})
	}
}

func TestReadEndpointTruncated(t *testing.T) {
	tests := []struct {
		name string
		atyp byte
		in   []byte
	}{
		{"ipv4 empty", ATYPIPv4, nil},
		{"ipv4 missing port byte", ATYPIPv4, []byte{127, 0, 0, 1, 0x1f}},
		{"ipv6 short address", ATYPIPv6, make([]byte, 10)},
		{"ipv6 missing port", ATYPIPv6, make([]byte, 16)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEndpoint(bytes.NewReader(tt.in), tt.atyp)
			if !errors.Is(err, ErrTruncatedInput) {
				t.Fatalf("got %v want ErrTruncatedInput", err)
			}
		})
	}
}

func TestReadEndpointRejectsDomain(t *testing.T) {
	_, err := ReadEndpoint(bytes.NewReader([]byte{3, 'a', 'b', 'c', 0, 80}), ATYPDomain)
	if !errors.Is(err, ErrUnsupportedAddressType) {
		t.Fatalf("got %v want ErrUnsupportedAddressType", err)
	}
}

func TestEndpointFromNetAddr(t *testing.T) {
	tests := []struct {
		name     string
		addr     net.Addr
		want     string
		wantAtyp byte
		wantErr  bool
	}{
		{
			name:     "ipv4",
			addr:     &net.TCPAddr{IP: net.IPv4(192, 0, 2, 7), Port: 40000},
			want:     "192.0.2.7:40000",
			wantAtyp: ATYPIPv4,
		},
		{
			name:     "ipv4 in 16-byte form is unmapped",
			addr:     &net.TCPAddr{IP: net.ParseIP("::ffff:10.0.0.1"), Port: 1},
			want:     "10.0.0.1:1",
			wantAtyp: ATYPIPv4,
		},
		{
			name:     "ipv6 zone dropped",
			addr:     &net.TCPAddr{IP: net.ParseIP("fe80::1"), Port: 22, Zone: "eth0"},
			want:     "[fe80::1]:22",
			wantAtyp: ATYPIPv6,
		},
		{
			name:     "non-tcp addr parsed from string",
			addr:     &net.UDPAddr{IP: net.ParseIP("2001:db8::1"), Port: 53},
			want:     "[2001:db8::1]:53",
			wantAtyp: ATYPIPv6,
		},
		{
			name:    "unix addr",
			addr:    &net.UnixAddr{Name: "/tmp/sock", Net: "unix"},
			wantErr: true,
		},
		{
			name:    "nil ip",
			addr:    &net.TCPAddr{Port: 80},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := EndpointFromNetAddr(tt.addr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ep.String() != tt.want {
				t.Fatalf("got %s want %s", ep, tt.want)
			}
			if ep.AddressType() != tt.wantAtyp {
				t.Fatalf("atyp %d want %d", ep.AddressType(), tt.wantAtyp)
			}
		})
	}
}

func TestZeroEndpointEncodesAsUnspecifiedIPv4(t *testing.T) {
	var ep Endpoint
	if ep.IsValid() {
		t.Fatal("zero endpoint should be invalid")
	}
	want := []byte{0x01, 0, 0, 0, 0, 0, 0}
	if got := ep.AppendTo(nil); !bytes.Equal(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	if ep.String() != "0.0.0.0:0" {
		t.Fatalf("got %s", ep.String())
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("[::1]:1080")
	if err != nil {
		t.Fatal(err)
	}
	if ep != EndpointFrom16([16]byte{15: 1}, 1080) {
		t.Fatalf("got %v", ep)
	}

	if _, err := ParseEndpoint("example.com:80"); err == nil {
		t.Fatal("expected error for hostname")
	}
}
