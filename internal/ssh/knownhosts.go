package ssh

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// NewHostKeyCallback verifies host keys against the known_hosts file at path,
// creating it if needed. Unknown hosts are appended on first contact; a host
// whose key changed is rejected. An empty path disables verification.
func NewHostKeyCallback(path string, log zerolog.Logger) (ssh.HostKeyCallback, error) {
	if path == "" {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // User explicitly disabled host key checking.
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600) //nolint:gosec // Path is from user config.
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	_ = f.Close()

	check, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}

	// check is reloaded after every append so a host trusted earlier in this
	// process is held to the key it was trusted with.
	var mu sync.Mutex
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		mu.Lock()
		defer mu.Unlock()

		err := check(hostname, remote, key)

		var keyErr *knownhosts.KeyError
		switch {
		case err == nil:
			return nil
		case !errors.As(err, &keyErr):
			return err
		case len(keyErr.Want) > 0:
			return fmt.Errorf("host key mismatch for %s: %w", hostname, err)
		}

		if err := appendKnownHost(path, hostname, key); err != nil {
			return err
		}
		reloaded, err := knownhosts.New(path)
		if err != nil {
			return fmt.Errorf("known_hosts: %w", err)
		}
		check = reloaded

		log.Info().Str("host", hostname).Str("file", path).Str("key_type", key.Type()).Msg("trusted new ssh host key")
		return nil
	}, nil
}

func appendKnownHost(path, hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // Path is from user config.
	if err != nil {
		return fmt.Errorf("known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("known_hosts: %w", err)
	}
	return nil
}
