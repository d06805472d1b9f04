package wire

import (
	"encoding/binary"
	"errors"
)

const (
	arpHardwareEthernet = 1
	arpProtoIPv4        = 0x0800
	arpHwSize           = 6
	arpProtoSize        = 4
	arpMessageLen       = 28
)

// ARP opcodes.
const (
	ARPRequest uint16 = 1
	ARPReply   uint16 = 2
)

var errARPTooShort = errors.New("wire: arp message too short")

// ARPMessage is a parsed Ethernet/IPv4 ARP packet.
type ARPMessage struct {
	HardwareType uint16
	ProtocolType uint16
	Opcode       uint16
	SenderMAC    MAC
	SenderIP     uint32
	TargetMAC    MAC
	TargetIP     uint32
}

// Supported reports whether this message is an Ethernet/IPv4 ARP message
// this stack knows how to act on.
func (m ARPMessage) Supported() bool {
	return m.HardwareType == arpHardwareEthernet && m.ProtocolType == arpProtoIPv4
}

// ParseARP parses an ARP message payload (the bytes following the
// Ethernet header).
func ParseARP(data []byte) (ARPMessage, error) {
	if len(data) < arpMessageLen {
		return ARPMessage{}, errARPTooShort
	}
	var m ARPMessage
	m.HardwareType = binary.BigEndian.Uint16(data[0:2])
	m.ProtocolType = binary.BigEndian.Uint16(data[2:4])
	// hardware/protocol address sizes (data[4], data[5]) are implied fixed
	// for the Ethernet/IPv4 case this stack supports; Supported() is the
	// authoritative check, so they aren't separately validated here.
	m.Opcode = binary.BigEndian.Uint16(data[6:8])
	copy(m.SenderMAC[:], data[8:14])
	m.SenderIP = binary.BigEndian.Uint32(data[14:18])
	copy(m.TargetMAC[:], data[18:24])
	m.TargetIP = binary.BigEndian.Uint32(data[24:28])
	return m, nil
}

// Serialize encodes the ARP message to wire bytes.
func (m ARPMessage) Serialize() []byte {
	buf := make([]byte, arpMessageLen)
	binary.BigEndian.PutUint16(buf[0:2], m.HardwareType)
	binary.BigEndian.PutUint16(buf[2:4], m.ProtocolType)
	buf[4] = arpHwSize
	buf[5] = arpProtoSize
	binary.BigEndian.PutUint16(buf[6:8], m.Opcode)
	copy(buf[8:14], m.SenderMAC[:])
	binary.BigEndian.PutUint32(buf[14:18], m.SenderIP)
	copy(buf[18:24], m.TargetMAC[:])
	binary.BigEndian.PutUint32(buf[24:28], m.TargetIP)
	return buf
}

// NewARPRequest builds an ARP request for targetIP, from senderMAC/senderIP.
func NewARPRequest(senderMAC MAC, senderIP uint32, targetIP uint32) ARPMessage {
	return ARPMessage{
		HardwareType: arpHardwareEthernet,
		ProtocolType: arpProtoIPv4,
		Opcode:       ARPRequest,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetIP:     targetIP,
	}
}

// NewARPReply builds an ARP reply answering req, from senderMAC/senderIP.
func NewARPReply(senderMAC MAC, senderIP uint32, req ARPMessage) ARPMessage {
	return ARPMessage{
		HardwareType: arpHardwareEthernet,
		ProtocolType: arpProtoIPv4,
		Opcode:       ARPReply,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetMAC:    req.SenderMAC,
		TargetIP:     req.SenderIP,
	}
}
