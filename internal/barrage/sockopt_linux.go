//go:build linux

package barrage

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// keepalive выставляем сами в controlSocket, поэтому встроенный в net
// отключаем, иначе он перезапишет TCP_KEEPIDLE после connect.
const dialerKeepAlive = -1

// controlSocket настраивает сокет до connect: без Nagle (кадры маленькие) и
// TCP keepalive, чтобы мёртвый пир всплыл ошибкой чтения.
func controlSocket(network, address string, rc syscall.RawConn) error {
	var serr error
	err := rc.Control(func(fd uintptr) {
		opts := []struct{ level, opt, value int }{
			{unix.IPPROTO_TCP, unix.TCP_NODELAY, 1},
			{unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1},
			{unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, 60},
			{unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, 15},
			{unix.IPPROTO_TCP, unix.TCP_KEEPCNT, 4},
		}
		for _, o := range opts {
			if serr = unix.SetsockoptInt(int(fd), o.level, o.opt, o.value); serr != nil {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	return serr
}
