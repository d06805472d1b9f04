package link

import (
	"testing"

	"github.com/tinyrange/tcpipcore/internal/wire"
)

func mustAddRoute(t *testing.T, rt *Router, prefix uint32, prefixLen uint8, nextHop *uint32, ifaceIdx int) {
	t.Helper()
	if err := rt.AddRoute(prefix, prefixLen, nextHop, ifaceIdx); err != nil {
		t.Fatalf("AddRoute: %v", err)
	}
}

func TestRouteLongestPrefixMatch(t *testing.T) {
	var sentA, sentB []wire.EthernetFrame
	ifaceA := mkIface("a", wire.MAC{1}, 0x0a000001, &sentA)
	ifaceB := mkIface("b", wire.MAC{2}, 0x0a000101, &sentB)

	rt := NewRouter(nil)
	idxA := rt.AddInterface(ifaceA)
	idxB := rt.AddInterface(ifaceB)

	mustAddRoute(t, rt, 0x0a000000, 8, nil, idxA)  // broad /8 via A
	mustAddRoute(t, rt, 0x0a000100, 24, nil, idxB) // more specific /24 via B

	dgram := wire.IPv4Datagram{TTL: 10, Dst: 0x0a000105}
	rt.Deliver(idxA, dgram)
	rt.Route()

	if len(sentB) != 1 {
		t.Fatalf("expected longest-prefix match to route via B, sentA=%d sentB=%d", len(sentA), len(sentB))
	}
	fwd, err := wire.ParseIPv4(sentB[0].Payload)
	if err != nil {
		t.Fatalf("parse forwarded datagram: %v", err)
	}
	if fwd.TTL != 9 {
		t.Fatalf("TTL = %d, want 9 after one hop", fwd.TTL)
	}
}

func TestRouteDropsExpiredTTL(t *testing.T) {
	var sent []wire.EthernetFrame
	iface := mkIface("a", wire.MAC{1}, 0x0a000001, &sent)
	rt := NewRouter(nil)
	idx := rt.AddInterface(iface)
	mustAddRoute(t, rt, 0, 0, nil, idx)

	rt.Deliver(idx, wire.IPv4Datagram{TTL: 1, Dst: 0x0a000002})
	rt.Route()

	if len(sent) != 0 {
		t.Fatalf("expected datagram with TTL 1 to be dropped, got %d forwarded", len(sent))
	}
}

func TestRouteDropsUnmatchedDestination(t *testing.T) {
	var sent []wire.EthernetFrame
	iface := mkIface("a", wire.MAC{1}, 0x0a000001, &sent)
	rt := NewRouter(nil)
	idx := rt.AddInterface(iface)
	mustAddRoute(t, rt, 0x0a000000, 24, nil, idx)

	rt.Deliver(idx, wire.IPv4Datagram{TTL: 10, Dst: 0xc0a80101})
	rt.Route()

	if len(sent) != 0 {
		t.Fatalf("expected unmatched destination to be dropped, got %d forwarded", len(sent))
	}
}

func TestRouteViaNextHop(t *testing.T) {
	var sent []wire.EthernetFrame
	iface := mkIface("a", wire.MAC{1}, 0x0a000001, &sent)
	rt := NewRouter(nil)
	idx := rt.AddInterface(iface)
	nextHop := uint32(0x0a0000fe)
	mustAddRoute(t, rt, 0, 0, &nextHop, idx)

	rt.Deliver(idx, wire.IPv4Datagram{TTL: 10, Dst: 0xc0a80101})
	rt.Route()

	if len(sent) != 1 || sent[0].Type != wire.EtherTypeARP {
		t.Fatalf("expected router to ARP for configured next hop, got %+v", sent)
	}
}

func TestAddRouteRejectsOversizedPrefixLen(t *testing.T) {
	var sent []wire.EthernetFrame
	iface := mkIface("a", wire.MAC{1}, 0x0a000001, &sent)
	rt := NewRouter(nil)
	idx := rt.AddInterface(iface)

	if err := rt.AddRoute(0x0a000000, 33, nil, idx); err == nil {
		t.Fatalf("expected error for prefix_len > 32")
	}
	if len(rt.routes) != 0 {
		t.Fatalf("rejected route must not be installed, got %d routes", len(rt.routes))
	}
}
