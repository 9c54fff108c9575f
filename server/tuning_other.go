//go:build !linux

package server

import (
	"net"

	"github.com/watt-toolkit/exchange/log"
)

// applyListenerTuning is a no-op on platforms without the Linux-specific
// socket options tuning_linux.go applies.
func applyListenerTuning(ln net.Listener, logger log.Logger) {}
