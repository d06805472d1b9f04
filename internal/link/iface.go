// Package link implements the Ethernet/ARP network interface and IPv4
// router that sit below the TCP state machines, adapted from the
// teacher's ARP-handling code in internal/netstack.
package link

import (
	"log/slog"

	"github.com/tinyrange/tcpipcore/internal/wire"
)

const (
	arpCacheTTLMs     = 30_000
	arpRequestRetryMs = 5_000
)

type arpCacheEntry struct {
	mac      wire.MAC
	expireAt uint64
}

// NetworkInterface is one Ethernet-attached IP endpoint. It owns an ARP
// cache, a queue of datagrams waiting on address resolution, and a single
// outgoing Ethernet transmit function. It is not safe for concurrent use;
// all methods are driven from a single tick loop.
type NetworkInterface struct {
	name string
	mac  wire.MAC
	ip   uint32

	transmit func(frame wire.EthernetFrame)
	logger   *slog.Logger

	arpCache      map[uint32]arpCacheEntry
	arpPending    map[uint32]uint64
	waitingDgrams map[uint32][]wire.IPv4Datagram

	nowMs uint64
}

// NewNetworkInterface constructs an interface named name with the given
// hardware/IP addresses, transmitting frames via transmit.
func NewNetworkInterface(name string, mac wire.MAC, ip uint32, transmit func(wire.EthernetFrame), logger *slog.Logger) *NetworkInterface {
	if logger == nil {
		logger = slog.Default()
	}
	return &NetworkInterface{
		name:          name,
		mac:           mac,
		ip:            ip,
		transmit:      transmit,
		logger:        logger.With("iface", name),
		arpCache:      make(map[uint32]arpCacheEntry),
		arpPending:    make(map[uint32]uint64),
		waitingDgrams: make(map[uint32][]wire.IPv4Datagram),
	}
}

// Name returns the interface's configured name.
func (n *NetworkInterface) Name() string { return n.name }

// IP returns the interface's configured IPv4 address.
func (n *NetworkInterface) IP() uint32 { return n.ip }

// SendDatagram attempts to send dgram to nextHop (already resolved to the
// next-hop IP by the caller's routing decision). If the next hop's MAC is
// cached, the frame is transmitted immediately; otherwise the datagram is
// queued and an ARP request is sent, throttled to at most one every
// arpRequestRetryMs.
func (n *NetworkInterface) SendDatagram(dgram wire.IPv4Datagram, nextHop uint32) {
	if entry, ok := n.arpCache[nextHop]; ok && n.nowMs < entry.expireAt {
		n.sendIPv4(dgram, entry.mac)
		return
	}

	if last, pending := n.arpPending[nextHop]; pending && n.nowMs < last+arpRequestRetryMs {
		n.waitingDgrams[nextHop] = append(n.waitingDgrams[nextHop], dgram)
		return
	}

	// The previous request (if any) has gone stale with no reply; its
	// waiting datagrams are undeliverable and would otherwise accumulate
	// forever, so drop them before queuing the current one.
	delete(n.waitingDgrams, nextHop)
	n.waitingDgrams[nextHop] = append(n.waitingDgrams[nextHop], dgram)
	n.arpPending[nextHop] = n.nowMs

	req := wire.NewARPRequest(n.mac, n.ip, nextHop)
	n.transmit(wire.EthernetFrame{
		Dst:     wire.Broadcast,
		Src:     n.mac,
		Type:    wire.EtherTypeARP,
		Payload: req.Serialize(),
	})
}

// RecvFrame handles an inbound Ethernet frame. It returns the decoded
// IPv4 datagram and true when the frame carried one addressed to this
// interface; ARP traffic is handled internally and never surfaced.
func (n *NetworkInterface) RecvFrame(frame wire.EthernetFrame) (wire.IPv4Datagram, bool) {
	if frame.Dst != n.mac && frame.Dst != wire.Broadcast {
		return wire.IPv4Datagram{}, false
	}

	switch frame.Type {
	case wire.EtherTypeIPv4:
		dgram, err := wire.ParseIPv4(frame.Payload)
		if err != nil {
			n.logger.Debug("dropping malformed ipv4 frame", "err", err)
			return wire.IPv4Datagram{}, false
		}
		return dgram, true

	case wire.EtherTypeARP:
		msg, err := wire.ParseARP(frame.Payload)
		if err != nil || !msg.Supported() {
			return wire.IPv4Datagram{}, false
		}
		n.learn(msg.SenderIP, msg.SenderMAC)

		if msg.Opcode == wire.ARPReply {
			return wire.IPv4Datagram{}, false
		}
		if msg.Opcode == wire.ARPRequest && msg.TargetIP == n.ip {
			reply := wire.NewARPReply(n.mac, n.ip, msg)
			n.transmit(wire.EthernetFrame{
				Dst:     msg.SenderMAC,
				Src:     n.mac,
				Type:    wire.EtherTypeARP,
				Payload: reply.Serialize(),
			})
		}
		return wire.IPv4Datagram{}, false

	default:
		return wire.IPv4Datagram{}, false
	}
}

// Tick advances the interface's internal clock by ms milliseconds. It
// does not itself expire pending ARP requests; arpPending entries age out
// naturally via the retry throttle check in SendDatagram.
func (n *NetworkInterface) Tick(ms uint64) {
	n.nowMs += ms
}

func (n *NetworkInterface) learn(ip uint32, mac wire.MAC) {
	n.arpCache[ip] = arpCacheEntry{mac: mac, expireAt: n.nowMs + arpCacheTTLMs}
	delete(n.arpPending, ip)

	queued := n.waitingDgrams[ip]
	delete(n.waitingDgrams, ip)
	for _, dgram := range queued {
		n.sendIPv4(dgram, mac)
	}
}

func (n *NetworkInterface) sendIPv4(dgram wire.IPv4Datagram, dst wire.MAC) {
	n.transmit(wire.EthernetFrame{
		Dst:     dst,
		Src:     n.mac,
		Type:    wire.EtherTypeIPv4,
		Payload: dgram.Serialize(),
	})
}
