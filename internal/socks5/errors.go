package socks5

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrUnsupportedVersion is returned when the greeting does not start with
	// version 5. Nothing is written back.
	ErrUnsupportedVersion = errors.New("unsupported socks version")
	// ErrInvalidVersion is returned when a request header carries a version
	// other than 5. Nothing is written back.
	ErrInvalidVersion = errors.New("invalid request version")
	// ErrNoAcceptableAuth is returned after replying 0xFF to a client that did
	// not offer the "no authentication" method.
	ErrNoAcceptableAuth = errors.New("no acceptable authentication method")

	ErrUnsupportedCommand     = errors.New("unsupported command")
	ErrMalformedRequest       = errors.New("malformed request")
	ErrUnsupportedAddressType = errors.New("unsupported address type")

	// ErrTruncatedInput is returned when the peer closes mid-message.
	ErrTruncatedInput = errors.New("truncated input")
	// ErrConnectFailed is returned when the outbound connection could not be
	// established.
	ErrConnectFailed = errors.New("connect failed")
)

// ProtocolError is a request the server refused to serve. Replied reports
// whether Reply made it onto the wire.
type ProtocolError struct {
	Reply   ReplyCode
	Replied bool
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Replied {
		return fmt.Sprintf("%v (replied %v)", e.Err, e.Reply)
	}
	return e.Err.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// IsProtocolError reports whether err is, or wraps, a *ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

// readFull is io.ReadFull that reports a short stream as ErrTruncatedInput.
func readFull(r io.Reader, b []byte) error {
	if _, err := io.ReadFull(r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %w", ErrTruncatedInput, err)
		}
		return err
	}
	return nil
}
