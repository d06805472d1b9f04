// Command tcpipd is a demo harness for the tcpipcore stack: it loads a
// YAML topology, wires up a link.Router, and drives it either from a
// recorded pcap capture or (on Linux) a real TUN device.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/miekg/dns"
	"github.com/schollz/progressbar/v3"

	"github.com/tinyrange/tcpipcore/internal/link"
	"github.com/tinyrange/tcpipcore/internal/netconfig"
	"github.com/tinyrange/tcpipcore/internal/pcap"
	"github.com/tinyrange/tcpipcore/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	configPath := fs.String("config", "", "YAML topology file (required)")
	resolver := fs.String("resolver", "", "DNS resolver (host:port) to resolve hostname next hops")
	pcapPath := fs.String("pcap", "", "Replay inbound frames from this pcap capture")
	outPcapPath := fs.String("out-pcap", "", "Write outbound frames to this pcap capture")
	tunName := fs.String("tun", "", "Bridge the first interface to this Linux TUN device")
	verbose := fs.Bool("v", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -config topology.yaml [flags]\n\nFlags:\n", os.Args[0])
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if *configPath == "" {
		fs.Usage()
		return errors.New("tcpipd: -config is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	top, err := netconfig.Load(*configPath)
	if err != nil {
		return err
	}

	rt := link.NewRouter(logger)
	ifaceIdx := make(map[string]int, len(top.Interfaces))
	ifaces := make(map[string]*link.NetworkInterface, len(top.Interfaces))

	var outWriter *pcap.Writer
	if *outPcapPath != "" {
		f, err := os.Create(*outPcapPath)
		if err != nil {
			return fmt.Errorf("tcpipd: creating %s: %w", *outPcapPath, err)
		}
		defer f.Close()
		outWriter = pcap.NewWriter(f)
		if err := outWriter.WriteFileHeader(65535, pcap.LinkTypeEthernet); err != nil {
			return fmt.Errorf("tcpipd: writing pcap header: %w", err)
		}
	}

	for _, ic := range top.Interfaces {
		mac, err := netconfig.ParseMAC(ic.MAC)
		if err != nil {
			return err
		}
		ip, err := netconfig.ParseIPv4(ic.IP)
		if err != nil {
			return err
		}

		name := ic.Name
		iface := link.NewNetworkInterface(name, wire.MAC(mac), ip, func(frame wire.EthernetFrame) {
			if outWriter != nil {
				if err := outWriter.WriteFrame(time.Now(), frame); err != nil {
					logger.Debug("dropping capture record", "iface", name, "err", err)
				}
			}
			logger.Debug("transmit frame", "iface", name, "type", frame.Type)
		}, logger)

		idx := rt.AddInterface(iface)
		ifaceIdx[name] = idx
		ifaces[name] = iface
	}

	for _, rc := range top.Routes {
		prefix, err := netconfig.ParseIPv4(rc.Prefix)
		if err != nil {
			return err
		}
		idx, ok := ifaceIdx[rc.Interface]
		if !ok {
			return fmt.Errorf("tcpipd: route references undefined interface %q", rc.Interface)
		}

		var nextHop *uint32
		if rc.NextHop != "" {
			resolved, err := resolveNextHop(rc.NextHop, *resolver)
			if err != nil {
				return err
			}
			nextHop = &resolved
		}
		if err := rt.AddRoute(prefix, rc.PrefixLen, nextHop, idx); err != nil {
			return err
		}
	}

	switch {
	case *pcapPath != "":
		return replayPcap(*pcapPath, rt, ifaces, top, logger)
	case *tunName != "":
		return bridgeTUN(*tunName, rt, ifaces, top, logger)
	default:
		return errors.New("tcpipd: one of -pcap or -tun is required")
	}
}

// resolveNextHop resolves host to a dotted-quad next-hop address. If host
// is already a literal IPv4 address it is returned unchanged; otherwise a
// single A-record query is issued against resolver.
func resolveNextHop(host, resolver string) (uint32, error) {
	if ip, err := netconfig.ParseIPv4(host); err == nil {
		return ip, nil
	}
	if resolver == "" {
		return 0, fmt.Errorf("tcpipd: %q is not a literal IP and no -resolver was given", host)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)

	client := new(dns.Client)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, _, err := client.ExchangeContext(ctx, m, resolver)
	if err != nil {
		return 0, fmt.Errorf("tcpipd: resolving %q via %s: %w", host, resolver, err)
	}
	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			return netconfig.ParseIPv4(a.A.String())
		}
	}
	return 0, fmt.Errorf("tcpipd: no A record found for %q", host)
}

// replayPcap drives the router from a recorded capture, feeding each
// decoded frame in sequence to the first configured interface's RecvFrame
// and advancing that interface's clock by 1 ms per frame.
func replayPcap(path string, rt *link.Router, ifaces map[string]*link.NetworkInterface, top *netconfig.Topology, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tcpipd: opening %s: %w", path, err)
	}
	defer f.Close()

	reader, err := pcap.NewReader(f)
	if err != nil {
		return fmt.Errorf("tcpipd: reading %s: %w", path, err)
	}

	info, _ := f.Stat()
	var bar *progressbar.ProgressBar
	if info != nil {
		bar = progressbar.DefaultBytes(info.Size(), "replaying capture")
		defer bar.Close()
	}

	// All replayed frames are attributed to the first configured
	// interface; per-interface pcap demultiplexing is out of scope for
	// this demo harness.
	firstIface := top.Interfaces[0].Name
	firstIdx := 0
	iface := ifaces[firstIface]

	for {
		ci, frame, err := reader.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logger.Debug("skipping malformed frame", "err", err)
			continue
		}
		if bar != nil {
			_ = bar.Add(ci.CaptureLength + 16)
		}

		if dgram, ok := iface.RecvFrame(frame); ok {
			rt.Deliver(firstIdx, dgram)
		}
		iface.Tick(1)
	}

	rt.Route()
	return nil
}
