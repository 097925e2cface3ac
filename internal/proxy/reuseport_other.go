//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package proxy

import "errors"

func setReusePort(_ uintptr) error {
	return errors.New("SO_REUSEPORT is not supported on this platform")
}
