// Package wire gives the parse/serialize "external collaborator" spec.md
// §1 names (Ethernet/ARP/IPv4 binary formats) a concrete home, adapted from
// the teacher's own hand-rolled header structs in internal/netstack.
package wire

import (
	"encoding/binary"
	"errors"
)

// MAC is a 6-byte Ethernet hardware address.
type MAC [6]byte

// Broadcast is the all-ones Ethernet broadcast address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// EtherType identifies an Ethernet frame's payload protocol.
type EtherType uint16

// EtherTypes this stack acts on.
const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

const ethernetHeaderLen = 14

var errFrameTooShort = errors.New("wire: ethernet frame too short")

// EthernetFrame is a parsed Ethernet II frame.
type EthernetFrame struct {
	Dst     MAC
	Src     MAC
	Type    EtherType
	Payload []byte
}

// ParseEthernet parses an Ethernet II frame from raw bytes.
func ParseEthernet(data []byte) (EthernetFrame, error) {
	if len(data) < ethernetHeaderLen {
		return EthernetFrame{}, errFrameTooShort
	}
	var f EthernetFrame
	copy(f.Dst[:], data[0:6])
	copy(f.Src[:], data[6:12])
	f.Type = EtherType(binary.BigEndian.Uint16(data[12:14]))
	f.Payload = data[14:]
	return f, nil
}

// Serialize encodes the frame back to wire bytes.
func (f EthernetFrame) Serialize() []byte {
	buf := make([]byte, ethernetHeaderLen+len(f.Payload))
	copy(buf[0:6], f.Dst[:])
	copy(buf[6:12], f.Src[:])
	binary.BigEndian.PutUint16(buf[12:14], uint16(f.Type))
	copy(buf[14:], f.Payload)
	return buf
}
