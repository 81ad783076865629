package control

import (
	"net"

	"golang.org/x/sys/unix"
)

// PeerIsRoot inspects SO_PEERCRED on a unix-domain connection to latch
// the is_root flag at accept time (spec.md section 4.8). Returns false
// (and an error) for any connection type other than *net.UnixConn,
// since SO_PEERCRED is only meaningful on AF_UNIX sockets.
func PeerIsRoot(conn *net.UnixConn) (bool, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return false, err
	}
	var ucred *unix.Ucred
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		ucred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil {
		return false, err
	}
	if sockErr != nil {
		return false, sockErr
	}
	return ucred.Uid == 0, nil
}
