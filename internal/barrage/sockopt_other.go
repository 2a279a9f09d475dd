//go:build !linux

package barrage

import "syscall"

const dialerKeepAlive = 0

func controlSocket(network, address string, rc syscall.RawConn) error {
	return nil
}
