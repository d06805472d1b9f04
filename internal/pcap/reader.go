package pcap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tinyrange/tcpipcore/internal/wire"
)

// ErrNotPcap indicates the stream's magic number did not match either
// byte order of the classic libpcap global header.
var ErrNotPcap = errors.New("pcap: bad magic number")

// Reader replays a classic libpcap-formatted stream, the read-side
// companion to Writer.
type Reader struct {
	r         io.Reader
	byteOrder binary.ByteOrder
	snapLen   uint32
	linkType  uint32
}

// NewReader wraps in, reading and validating the 24-byte global header.
// It auto-detects byte order from the magic number, matching libpcap's
// own behavior when replaying captures written on a different-endian host.
func NewReader(in io.Reader) (*Reader, error) {
	var hdr [24]byte
	if _, err := io.ReadFull(in, hdr[:]); err != nil {
		return nil, fmt.Errorf("pcap: read header: %w", err)
	}

	var order binary.ByteOrder
	switch magic := binary.LittleEndian.Uint32(hdr[0:4]); magic {
	case 0xa1b2c3d4:
		order = binary.LittleEndian
	case 0xd4c3b2a1:
		order = binary.BigEndian
	default:
		return nil, ErrNotPcap
	}

	return &Reader{
		r:         in,
		byteOrder: order,
		snapLen:   order.Uint32(hdr[16:20]),
		linkType:  order.Uint32(hdr[20:24]),
	}, nil
}

// SnapLen returns the capture's configured snapshot length.
func (r *Reader) SnapLen() uint32 { return r.snapLen }

// LinkType returns the capture's link-layer type (see LinkTypeEthernet).
func (r *Reader) LinkType() uint32 { return r.linkType }

// ReadPacket returns the next captured packet's metadata and raw bytes.
// It returns io.EOF once the stream is exhausted.
func (r *Reader) ReadPacket() (CaptureInfo, []byte, error) {
	var rec [16]byte
	if _, err := io.ReadFull(r.r, rec[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return CaptureInfo{}, nil, fmt.Errorf("pcap: truncated record header: %w", err)
		}
		return CaptureInfo{}, nil, err
	}

	tsSec := r.byteOrder.Uint32(rec[0:4])
	tsUsec := r.byteOrder.Uint32(rec[4:8])
	capLen := r.byteOrder.Uint32(rec[8:12])
	origLen := r.byteOrder.Uint32(rec[12:16])

	data := make([]byte, capLen)
	if capLen > 0 {
		if _, err := io.ReadFull(r.r, data); err != nil {
			return CaptureInfo{}, nil, fmt.Errorf("pcap: truncated packet data: %w", err)
		}
	}

	ci := CaptureInfo{
		Timestamp:     time.Unix(int64(tsSec), int64(tsUsec)*1000).UTC(),
		CaptureLength: int(capLen),
		Length:        int(origLen),
	}
	return ci, data, nil
}

// ReadFrame reads the next record and parses it as an Ethernet frame, the
// form link.NetworkInterface.RecvFrame and cmd/tcpipd's replay loop both
// deal in.
func (r *Reader) ReadFrame() (CaptureInfo, wire.EthernetFrame, error) {
	ci, data, err := r.ReadPacket()
	if err != nil {
		return CaptureInfo{}, wire.EthernetFrame{}, err
	}
	frame, err := wire.ParseEthernet(data)
	if err != nil {
		return CaptureInfo{}, wire.EthernetFrame{}, fmt.Errorf("pcap: parsing ethernet frame: %w", err)
	}
	return ci, frame, nil
}
