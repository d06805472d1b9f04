package link

import (
	"fmt"
	"log/slog"

	"github.com/tinyrange/tcpipcore/internal/wire"
)

// route is one entry of the router's forwarding table.
type route struct {
	prefix     uint32
	prefixLen  uint8
	nextHop    uint32 // used only when hasNextHop is set
	hasNextHop bool   // false means the destination is directly attached
	ifaceIdx   int
}

func (r route) matches(dst uint32) bool {
	if r.prefixLen == 0 {
		return true
	}
	mask := ^uint32(0) << (32 - r.prefixLen)
	return dst&mask == r.prefix&mask
}

// Router forwards IPv4 datagrams between NetworkInterfaces by longest
// prefix match, decrementing TTL and recomputing the header checksum on
// every hop it performs — adapted from the teacher's router forwarding
// loop in internal/netstack.
type Router struct {
	logger     *slog.Logger
	interfaces []*NetworkInterface
	routes     []route

	inbound map[int][]wire.IPv4Datagram
}

// NewRouter constructs an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{logger: logger, inbound: make(map[int][]wire.IPv4Datagram)}
}

// AddInterface registers iface with the router and returns its index,
// used to identify it in AddRoute.
func (rt *Router) AddInterface(iface *NetworkInterface) int {
	rt.interfaces = append(rt.interfaces, iface)
	return len(rt.interfaces) - 1
}

// AddRoute installs a forwarding table entry: datagrams whose destination
// matches prefix/prefixLen are sent out interfaceIdx, via nextHop if set
// (nil for a directly attached network, where the destination address
// itself is used as the next hop). It rejects prefixLen > 32.
func (rt *Router) AddRoute(prefix uint32, prefixLen uint8, nextHop *uint32, interfaceIdx int) error {
	if prefixLen > 32 {
		return fmt.Errorf("link: route prefix_len %d exceeds 32", prefixLen)
	}
	r := route{prefix: prefix, prefixLen: prefixLen, ifaceIdx: interfaceIdx}
	if nextHop != nil {
		r.nextHop = *nextHop
		r.hasNextHop = true
	}
	// Keep the table sorted by descending prefix length; a new entry goes
	// before the first strictly shorter one, so ties keep insertion order.
	i := 0
	for i < len(rt.routes) && rt.routes[i].prefixLen >= prefixLen {
		i++
	}
	rt.routes = append(rt.routes, route{})
	copy(rt.routes[i+1:], rt.routes[i:])
	rt.routes[i] = r
	return nil
}

// Deliver hands an inbound datagram, received on interfaceIdx, to the
// router for forwarding on the next Route call.
func (rt *Router) Deliver(interfaceIdx int, dgram wire.IPv4Datagram) {
	rt.inbound[interfaceIdx] = append(rt.inbound[interfaceIdx], dgram)
}

// Route drains every interface's pending inbound datagrams and forwards
// each by longest prefix match. Datagrams with TTL <= 1, or with no
// matching route, are silently dropped.
func (rt *Router) Route() {
	for idx := range rt.interfaces {
		pending := rt.inbound[idx]
		if len(pending) == 0 {
			continue
		}
		rt.inbound[idx] = nil
		for _, dgram := range pending {
			rt.routeOne(dgram)
		}
	}
}

func (rt *Router) routeOne(dgram wire.IPv4Datagram) {
	if dgram.TTL <= 1 {
		rt.logger.Debug("dropping datagram: ttl expired", "dst", dgram.Dst)
		return
	}

	best, ok := rt.longestMatch(dgram.Dst)
	if !ok {
		rt.logger.Debug("dropping datagram: no matching route", "dst", dgram.Dst)
		return
	}

	dgram.TTL--
	dgram.RecomputeChecksum()

	nextHop := dgram.Dst
	if best.hasNextHop {
		nextHop = best.nextHop
	}
	rt.interfaces[best.ifaceIdx].SendDatagram(dgram, nextHop)
}

func (rt *Router) longestMatch(dst uint32) (route, bool) {
	var (
		best    route
		bestLen = -1
	)
	for _, r := range rt.routes {
		if !r.matches(dst) {
			continue
		}
		if int(r.prefixLen) > bestLen {
			best = r
			bestLen = int(r.prefixLen)
		}
	}
	return best, bestLen >= 0
}
