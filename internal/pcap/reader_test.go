package pcap

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestReaderRoundTripsWriter(t *testing.T) {
	var buf bytes.Buffer
	writer := NewWriter(&buf)
	if err := writer.WriteFileHeader(1500, LinkTypeEthernet); err != nil {
		t.Fatalf("write header: %v", err)
	}

	packets := [][]byte{
		{0xaa, 0xbb, 0xcc},
		{0x01, 0x02, 0x03, 0x04, 0x05},
	}
	ts := time.Unix(1_700_000_000, 500_000_000)
	for _, p := range packets {
		ci := CaptureInfo{Timestamp: ts, CaptureLength: len(p), Length: len(p)}
		if err := writer.WritePacket(ci, p); err != nil {
			t.Fatalf("write packet: %v", err)
		}
	}

	reader, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if reader.SnapLen() != 1500 || reader.LinkType() != LinkTypeEthernet {
		t.Fatalf("unexpected global header: snaplen=%d linktype=%d", reader.SnapLen(), reader.LinkType())
	}

	for i, want := range packets {
		ci, data, err := reader.ReadPacket()
		if err != nil {
			t.Fatalf("ReadPacket %d: %v", i, err)
		}
		if !bytes.Equal(data, want) {
			t.Fatalf("packet %d mismatch: got %x, want %x", i, data, want)
		}
		if ci.CaptureLength != len(want) || ci.Length != len(want) {
			t.Fatalf("packet %d capture info mismatch: %+v", i, ci)
		}
	}

	if _, _, err := reader.ReadPacket(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestReaderRejectsBadMagic(t *testing.T) {
	bad := bytes.Repeat([]byte{0x00}, 24)
	if _, err := NewReader(bytes.NewReader(bad)); !errors.Is(err, ErrNotPcap) {
		t.Fatalf("expected ErrNotPcap, got %v", err)
	}
}
