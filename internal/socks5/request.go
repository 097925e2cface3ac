package socks5

import (
	"errors"
	"fmt"
	"io"
)

// Request is a validated CONNECT request.
type Request struct {
	Command byte
	Target  Endpoint
}

// ReadRequest reads [ver, cmd, rsv, atyp] followed by the destination.
//
// Checks run in wire order and stop at the first failure: a bad version is
// dropped silently, then an unsupported command, a non-zero reserved byte and
// an unsupported address type are each answered with their reply code. A
// truncated header or destination gets no reply.
func ReadRequest(rw io.ReadWriter) (*Request, error) {
	var hdr [4]byte
	if err := readFull(rw, hdr[:]); err != nil {
		return nil, fmt.Errorf("read request header: %w", err)
	}

	ver, cmd, rsv, atyp := hdr[0], hdr[1], hdr[2], hdr[3]
	switch {
	case ver != Version:
		return nil, &ProtocolError{Err: fmt.Errorf("%w: %d", ErrInvalidVersion, ver)}
	case cmd != CmdConnect:
		return nil, reject(rw, ReplyCommandNotSupported, fmt.Errorf("%w: %d", ErrUnsupportedCommand, cmd))
	case rsv != 0x00:
		return nil, reject(rw, ReplyGeneralFailure, fmt.Errorf("%w: reserved byte %#02x", ErrMalformedRequest, rsv))
	case atyp != ATYPIPv4 && atyp != ATYPIPv6:
		return nil, reject(rw, ReplyAddressTypeNotSupported, fmt.Errorf("%w: %d", ErrUnsupportedAddressType, atyp))
	}

	target, err := ReadEndpoint(rw, atyp)
	if err != nil {
		return nil, err
	}
	return &Request{Command: cmd, Target: target}, nil
}

func reject(w io.Writer, code ReplyCode, err error) error {
	werr := WriteErrorReply(w, code)
	if werr != nil {
		err = errors.Join(err, werr)
	}
	return &ProtocolError{Reply: code, Replied: werr == nil, Err: err}
}
