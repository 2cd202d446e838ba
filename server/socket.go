package server

import (
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// SocketGuard owns a listening Unix socket's backing file and removes
// it on Close. Go has no destructor equivalent to Rust's Drop, so
// every caller that creates a listener must defer guard.Close()
// explicitly to get the same cleanup-on-exit behavior
// original_source's SocketGuard gives for free.
type SocketGuard struct {
	path string
}

// Close removes the socket file. Safe to call if the file is already gone.
func (g *SocketGuard) Close() error {
	if err := os.Remove(g.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "server: remove socket file")
	}
	return nil
}

// Listen binds a Unix domain socket at path, removing any stale socket
// left behind by a server that exited uncleanly. It returns the
// listener plus a guard whose Close removes the socket file.
func Listen(path string) (net.Listener, *SocketGuard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, errors.Wrap(err, "server: create socket dir")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, nil, errors.Wrap(err, "server: remove stale socket")
	}
	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "server: listen")
	}
	return l, &SocketGuard{path: path}, nil
}
