package socks5

import (
	"bytes"
	"fmt"
	"io"
)

// Negotiate runs the version and method-selection exchange. It returns the
// methods the client offered.
//
// A greeting with the wrong version is dropped without a reply. Otherwise
// exactly one two-byte reply is written: [5, 0] when the client offers "no
// authentication", [5, 255] and ErrNoAcceptableAuth when it does not.
func Negotiate(rw io.ReadWriter) ([]byte, error) {
	var b [1]byte
	if err := readFull(rw, b[:]); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if b[0] != Version {
		return nil, &ProtocolError{Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, b[0])}
	}

	if err := readFull(rw, b[:]); err != nil {
		return nil, fmt.Errorf("read method count: %w", err)
	}
	methods := make([]byte, int(b[0]))
	if err := readFull(rw, methods); err != nil {
		return nil, fmt.Errorf("read methods: %w", err)
	}

	if !bytes.Contains(methods, []byte{MethodNoAuth}) {
		if _, err := rw.Write([]byte{Version, MethodNoAcceptable}); err != nil {
			return methods, fmt.Errorf("write method selection: %w", err)
		}
		return methods, fmt.Errorf("%w: offered %v", ErrNoAcceptableAuth, methods)
	}

	if _, err := rw.Write([]byte{Version, MethodNoAuth}); err != nil {
		return methods, fmt.Errorf("write method selection: %w", err)
	}
	return methods, nil
}
