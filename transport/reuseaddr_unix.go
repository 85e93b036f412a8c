//go:build unix

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setReuseAddr is passed as the Control func of a net.ListenConfig so the
// listening socket has SO_REUSEADDR set before bind, matching spec.md
// §4.1/§6 ("address reuse enabled").
func setReuseAddr(_ string, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
