//go:build !linux

package main

import (
	"errors"
	"log/slog"

	"github.com/tinyrange/tcpipcore/internal/link"
	"github.com/tinyrange/tcpipcore/internal/netconfig"
)

// bridgeTUN is only implemented on Linux; TUN device access needs a
// platform-specific ioctl interface this demo harness doesn't provide
// elsewhere.
func bridgeTUN(tunName string, rt *link.Router, ifaces map[string]*link.NetworkInterface, top *netconfig.Topology, logger *slog.Logger) error {
	return errors.New("tcpipd: -tun is only supported on linux")
}
