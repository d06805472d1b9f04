//go:build linux

package main

import (
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tinyrange/tcpipcore/internal/link"
	"github.com/tinyrange/tcpipcore/internal/netconfig"
	"github.com/tinyrange/tcpipcore/internal/wire"
)

const (
	ifReqSize  = 40
	tunSetIff  = 0x400454ca
	iffTun     = 0x0001
	iffNoPI    = 0x1000
	tunDevPath = "/dev/net/tun"
)

// openTUN opens a Linux TUN device named name, creating it if necessary.
func openTUN(name string) (*os.File, error) {
	f, err := os.OpenFile(tunDevPath, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("tcpipd: opening %s: %w", tunDevPath, err)
	}

	var ifr [ifReqSize]byte
	copy(ifr[:16], name)
	*(*uint16)(unsafe.Pointer(&ifr[16])) = iffTun | iffNoPI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), uintptr(tunSetIff), uintptr(unsafe.Pointer(&ifr[0]))); errno != 0 {
		f.Close()
		return nil, fmt.Errorf("tcpipd: TUNSETIFF %s: %w", name, errno)
	}
	return f, nil
}

// bridgeTUN reads raw IPv4 packets from a real Linux TUN device (TUN
// devices with IFF_NO_PI carry no link-layer framing) and delivers each to
// the router as arriving on the first configured interface, then routes it.
// Traffic flows one way only: frames the router transmits go to the
// interfaces' transmit callbacks and are not written back to the device.
func bridgeTUN(tunName string, rt *link.Router, ifaces map[string]*link.NetworkInterface, top *netconfig.Topology, logger *slog.Logger) error {
	dev, err := openTUN(tunName)
	if err != nil {
		return err
	}
	defer dev.Close()

	firstIface := top.Interfaces[0].Name
	iface := ifaces[firstIface]
	buf := make([]byte, 65536)

	logger.Info("bridging interface to tun device", "iface", firstIface, "tun", tunName)

	for {
		n, err := dev.Read(buf)
		if err != nil {
			return fmt.Errorf("tcpipd: reading %s: %w", tunName, err)
		}

		dgram, err := wire.ParseIPv4(buf[:n])
		if err != nil {
			logger.Debug("dropping malformed packet from tun", "err", err)
			continue
		}
		rt.Deliver(0, dgram)
		iface.Tick(1)
		rt.Route()
	}
}
