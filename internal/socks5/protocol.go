package socks5

import "fmt"

// Version is the only protocol version spoken.
const Version byte = 0x05

// Authentication methods.
const (
	MethodNoAuth       byte = 0x00
	MethodNoAcceptable byte = 0xff
)

// Request commands. Only CmdConnect is served.
const (
	CmdConnect      byte = 0x01
	CmdBind         byte = 0x02
	CmdUDPAssociate byte = 0x03
)

// Address types.
const (
	ATYPIPv4   byte = 0x01
	ATYPDomain byte = 0x03
	ATYPIPv6   byte = 0x04
)

// ReplyCode is the REP field of a request reply.
type ReplyCode byte

const (
	ReplySucceeded      ReplyCode = 0x00
	ReplyGeneralFailure ReplyCode = 0x01
	// ReplyHostUnreachable is sent for every failed outbound dial. Its wire
	// value is 5, which RFC 1928 names "connection refused".
	ReplyHostUnreachable         ReplyCode = 0x05
	ReplyCommandNotSupported     ReplyCode = 0x07
	ReplyAddressTypeNotSupported ReplyCode = 0x08
)

func (c ReplyCode) String() string {
	switch c {
	case ReplySucceeded:
		return "succeeded"
	case ReplyGeneralFailure:
		return "general failure"
	case ReplyHostUnreachable:
		return "host unreachable"
	case ReplyCommandNotSupported:
		return "command not supported"
	case ReplyAddressTypeNotSupported:
		return "address type not supported"
	default:
		return fmt.Sprintf("reply(%#02x)", byte(c))
	}
}
