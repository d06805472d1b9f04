package wire

import (
	"encoding/binary"
	"errors"
)

const ipv4HeaderLen = 20

var (
	errIPv4TooShort    = errors.New("wire: ipv4 header too short")
	errIPv4BadVersion  = errors.New("wire: unsupported ipv4 version")
	errIPv4LengthShort = errors.New("wire: ipv4 header length mismatch")
)

// IPv4Datagram is a parsed IPv4 packet. Options are preserved verbatim but
// not interpreted; fragmentation is not supported (Flags/FragOffset is
// carried opaquely in FlagsFragOff and never acted on), matching spec.md's
// non-goals.
type IPv4Datagram struct {
	IHL          uint8
	TOS          uint8
	ID           uint16
	FlagsFragOff uint16
	TTL          uint8
	Protocol     uint8
	Checksum     uint16
	Src          uint32
	Dst          uint32
	Options      []byte
	Payload      []byte
}

// ParseIPv4 parses an IPv4 datagram from raw bytes.
func ParseIPv4(data []byte) (IPv4Datagram, error) {
	if len(data) < ipv4HeaderLen {
		return IPv4Datagram{}, errIPv4TooShort
	}
	verIHL := data[0]
	version := verIHL >> 4
	ihl := verIHL & 0x0f
	if version != 4 {
		return IPv4Datagram{}, errIPv4BadVersion
	}
	headerLen := int(ihl) * 4
	if len(data) < headerLen {
		return IPv4Datagram{}, errIPv4LengthShort
	}

	d := IPv4Datagram{
		IHL:          ihl,
		TOS:          data[1],
		FlagsFragOff: binary.BigEndian.Uint16(data[6:8]),
		TTL:          data[8],
		Protocol:     data[9],
		Checksum:     binary.BigEndian.Uint16(data[10:12]),
		Src:          binary.BigEndian.Uint32(data[12:16]),
		Dst:          binary.BigEndian.Uint32(data[16:20]),
	}
	d.ID = binary.BigEndian.Uint16(data[4:6])
	if headerLen > ipv4HeaderLen {
		d.Options = append([]byte(nil), data[ipv4HeaderLen:headerLen]...)
	}
	d.Payload = append([]byte(nil), data[headerLen:]...)
	return d, nil
}

// headerLen returns this datagram's encoded header length in bytes.
func (d IPv4Datagram) headerLen() int {
	ihl := d.IHL
	if ihl == 0 {
		ihl = uint8(ipv4HeaderLen / 4)
	}
	return int(ihl) * 4
}

// Serialize encodes the datagram to wire bytes, using the Checksum field
// as-is (call RecomputeChecksum first if the header was mutated).
func (d IPv4Datagram) Serialize() []byte {
	hdrLen := d.headerLen()
	buf := make([]byte, hdrLen+len(d.Payload))

	buf[0] = byte((4 << 4) | (hdrLen / 4))
	buf[1] = d.TOS
	binary.BigEndian.PutUint16(buf[2:4], uint16(hdrLen+len(d.Payload)))
	binary.BigEndian.PutUint16(buf[4:6], d.ID)
	binary.BigEndian.PutUint16(buf[6:8], d.FlagsFragOff)
	buf[8] = d.TTL
	buf[9] = d.Protocol
	binary.BigEndian.PutUint16(buf[10:12], d.Checksum)
	binary.BigEndian.PutUint32(buf[12:16], d.Src)
	binary.BigEndian.PutUint32(buf[16:20], d.Dst)
	if len(d.Options) > 0 {
		copy(buf[ipv4HeaderLen:hdrLen], d.Options)
	}
	copy(buf[hdrLen:], d.Payload)
	return buf
}

// RecomputeChecksum sets Checksum to the correct value for the datagram's
// current header fields. Callers must invoke this after any header
// mutation (e.g. TTL decrement) before transmitting.
func (d *IPv4Datagram) RecomputeChecksum() {
	d.Checksum = 0
	header := d.Serialize()[:d.headerLen()]
	d.Checksum = InternetChecksum(header)
}
