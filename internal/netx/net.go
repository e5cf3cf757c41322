// Package netx resolves the agent address into a listener.
package netx

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
)

const unixPrefix = "unix:"

// Split returns the network and address for address. "unix:PATH" is a Unix
// socket; anything else is TCP.
func Split(address string) (network, addr string) {
	if path, ok := strings.CutPrefix(address, unixPrefix); ok {
		return "unix", strings.TrimPrefix(path, "//")
	}
	return "tcp", address
}

// Listen opens address. A socket file left behind by a previous agent is
// removed first; a regular file at that path is an error.
func Listen(address string) (net.Listener, error) {
	network, addr := Split(address)
	if network == "unix" {
		if err := removeStaleSocket(addr); err != nil {
			return nil, err
		}
	}

	l, err := net.Listen(network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", address, err)
	}
	if network == "unix" {
		if err := os.Chmod(addr, 0o600); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("chmod %s: %w", addr, err)
		}
	}
	return l, nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}
