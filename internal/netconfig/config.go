// Package netconfig loads the YAML topology that drives cmd/tcpipd,
// in the style of the teacher's own test-spec YAML loader.
package netconfig

import (
	"fmt"
	"net"
	"os"

	"gopkg.in/yaml.v3"
)

// Topology describes a full set of interfaces and routes to wire up a
// link.Router, as read from a YAML config file.
type Topology struct {
	Interfaces []InterfaceConfig `yaml:"interfaces"`
	Routes     []RouteConfig     `yaml:"routes"`
}

// InterfaceConfig describes one NetworkInterface to create.
type InterfaceConfig struct {
	Name string `yaml:"name"`
	MAC  string `yaml:"mac"`
	IP   string `yaml:"ip"`
	// TUN is parsed from the config but not read by cmd/tcpipd, which
	// bridges the first configured interface to the device named by its
	// -tun flag instead.
	TUN string `yaml:"tun,omitempty"`
}

// RouteConfig describes one forwarding table entry.
type RouteConfig struct {
	Prefix    string `yaml:"prefix"`
	PrefixLen uint8  `yaml:"prefix_len"`
	// NextHop may be a literal IP or a hostname; cmd/tcpipd resolves
	// hostnames via DNS before constructing the router. Empty means the
	// destination network is directly attached.
	NextHop   string `yaml:"next_hop,omitempty"`
	Interface string `yaml:"interface"`
}

// Load reads and validates a Topology from a YAML file at path.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netconfig: reading %s: %w", path, err)
	}

	var top Topology
	if err := yaml.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("netconfig: parsing %s: %w", path, err)
	}

	if err := top.validate(); err != nil {
		return nil, fmt.Errorf("netconfig: %s: %w", path, err)
	}
	return &top, nil
}

func (t *Topology) validate() error {
	names := make(map[string]bool, len(t.Interfaces))
	for _, iface := range t.Interfaces {
		if iface.Name == "" {
			return fmt.Errorf("interface with empty name")
		}
		if names[iface.Name] {
			return fmt.Errorf("duplicate interface name %q", iface.Name)
		}
		names[iface.Name] = true

		if _, err := net.ParseMAC(iface.MAC); err != nil {
			return fmt.Errorf("interface %q: invalid mac %q: %w", iface.Name, iface.MAC, err)
		}
		if net.ParseIP(iface.IP) == nil {
			return fmt.Errorf("interface %q: invalid ip %q", iface.Name, iface.IP)
		}
	}

	for i, r := range t.Routes {
		if r.PrefixLen > 32 {
			return fmt.Errorf("route %d: prefix_len %d exceeds 32", i, r.PrefixLen)
		}
		if net.ParseIP(r.Prefix) == nil {
			return fmt.Errorf("route %d: invalid prefix %q", i, r.Prefix)
		}
		if !names[r.Interface] {
			return fmt.Errorf("route %d: references undefined interface %q", i, r.Interface)
		}
	}
	return nil
}

// ParseIPv4 parses a dotted-quad string into the big-endian uint32 form
// used throughout internal/wire and internal/link.
func ParseIPv4(s string) (uint32, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return 0, fmt.Errorf("netconfig: invalid ipv4 address %q", s)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("netconfig: %q is not an ipv4 address", s)
	}
	return uint32(v4[0])<<24 | uint32(v4[1])<<16 | uint32(v4[2])<<8 | uint32(v4[3]), nil
}

// ParseMAC parses a colon-separated MAC address string.
func ParseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return mac, fmt.Errorf("netconfig: invalid mac %q: %w", s, err)
	}
	if len(hw) != 6 {
		return mac, fmt.Errorf("netconfig: mac %q is not 6 bytes", s)
	}
	copy(mac[:], hw)
	return mac, nil
}
