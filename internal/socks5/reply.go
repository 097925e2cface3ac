package socks5

import (
	"fmt"
	"io"
)

// WriteErrorReply writes the short [5, code] reply that precedes closing a
// rejected request.
func WriteErrorReply(w io.Writer, code ReplyCode) error {
	if _, err := w.Write([]byte{Version, byte(code)}); err != nil {
		return fmt.Errorf("write %v reply: %w", code, err)
	}
	return nil
}

// WriteSuccessReply writes [5, 0, 0] and the bound endpoint in a single write.
func WriteSuccessReply(w io.Writer, bound Endpoint) error {
	b := make([]byte, 0, 3+1+16+2)
	b = append(b, Version, byte(ReplySucceeded), 0x00)
	b = bound.AppendTo(b)
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write success reply: %w", err)
	}
	return nil
}
