//go:build linux

package server

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/watt-toolkit/exchange/log"
)

// applyListenerTuning enables TCP_DEFER_ACCEPT on the listening socket,
// so a connection is handed to Accept only once its first request bytes
// have arrived. Grounded on
// shockwave/pkg/shockwave/socket/tuning_linux.go's applyListenerOptions,
// trimmed to that single option for a request/response server (the
// teacher's TCP_FASTOPEN/TCP_USER_TIMEOUT/keepalive knobs target
// persistent long-lived connections outside this library's scope).
func applyListenerTuning(ln net.Listener, logger log.Logger) {
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return
	}
	raw, err := tcpLn.SyscallConn()
	if err != nil {
		logger.Warn("socket tuning unavailable", log.F("error", err.Error()))
		return
	}

	var opErr error
	err = raw.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1)
	})
	if err != nil || opErr != nil {
		logger.Debug("TCP_DEFER_ACCEPT not applied", log.F("error", errString(err, opErr)))
	}
}

func errString(a, b error) string {
	if a != nil {
		return a.Error()
	}
	if b != nil {
		return b.Error()
	}
	return ""
}
