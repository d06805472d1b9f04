package wire

import (
	"bytes"
	"testing"
)

func TestEthernetRoundTrip(t *testing.T) {
	f := EthernetFrame{
		Dst:     MAC{1, 2, 3, 4, 5, 6},
		Src:     MAC{6, 5, 4, 3, 2, 1},
		Type:    EtherTypeIPv4,
		Payload: []byte("hello"),
	}
	got, err := ParseEthernet(f.Serialize())
	if err != nil {
		t.Fatalf("ParseEthernet: %v", err)
	}
	if got.Dst != f.Dst || got.Src != f.Src || got.Type != f.Type || !bytes.Equal(got.Payload, f.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, f)
	}
}

func TestEthernetTooShort(t *testing.T) {
	if _, err := ParseEthernet([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}

func TestARPRequestReplyRoundTrip(t *testing.T) {
	sender := MAC{1, 1, 1, 1, 1, 1}
	req := NewARPRequest(sender, 0x0a000001, 0x0a000002)
	if !req.Supported() {
		t.Fatalf("expected standard ethernet/ipv4 ARP request to be supported")
	}

	raw := req.Serialize()
	parsed, err := ParseARP(raw)
	if err != nil {
		t.Fatalf("ParseARP: %v", err)
	}
	if parsed.Opcode != ARPRequest || parsed.TargetIP != 0x0a000002 {
		t.Fatalf("unexpected parsed request: %+v", parsed)
	}

	responder := MAC{2, 2, 2, 2, 2, 2}
	reply := NewARPReply(responder, 0x0a000002, parsed)
	if reply.Opcode != ARPReply || reply.TargetMAC != sender || reply.TargetIP != 0x0a000001 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestARPTooShort(t *testing.T) {
	if _, err := ParseARP(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for truncated ARP message")
	}
}

func TestIPv4RoundTrip(t *testing.T) {
	d := IPv4Datagram{
		TOS:      0,
		ID:       1234,
		TTL:      64,
		Protocol: 6,
		Src:      0x0a000001,
		Dst:      0x0a000002,
		Payload:  []byte("payload-bytes"),
	}
	d.RecomputeChecksum()

	raw := d.Serialize()
	got, err := ParseIPv4(raw)
	if err != nil {
		t.Fatalf("ParseIPv4: %v", err)
	}
	if got.Src != d.Src || got.Dst != d.Dst || got.TTL != d.TTL || !bytes.Equal(got.Payload, d.Payload) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, d)
	}
	if got.Checksum != d.Checksum {
		t.Fatalf("checksum mismatch: got %#x, want %#x", got.Checksum, d.Checksum)
	}
}

func TestIPv4TTLDecrementInvalidatesOldChecksum(t *testing.T) {
	d := IPv4Datagram{TTL: 10, Src: 0x0a000001, Dst: 0x0a000002, Payload: []byte("x")}
	d.RecomputeChecksum()
	before := d.Checksum

	d.TTL--
	d.RecomputeChecksum()
	if d.Checksum == before {
		t.Fatalf("expected checksum to change after TTL decrement")
	}
}

func TestIPv4TooShort(t *testing.T) {
	if _, err := ParseIPv4(make([]byte, 10)); err == nil {
		t.Fatalf("expected error for truncated ipv4 header")
	}
}

func TestIPv4BadVersion(t *testing.T) {
	buf := make([]byte, 20)
	buf[0] = (6 << 4) | 5 // IPv6 version nibble
	if _, err := ParseIPv4(buf); err == nil {
		t.Fatalf("expected error for non-ipv4 version")
	}
}

func TestInternetChecksumOfCorrectHeaderVerifiesToZero(t *testing.T) {
	d := IPv4Datagram{TTL: 64, Src: 0x7f000001, Dst: 0x7f000001}
	d.RecomputeChecksum()
	raw := d.Serialize()[:20]
	// Summing a header (including its own correct checksum field) and
	// complementing the result yields zero.
	if InternetChecksumWithInitial(raw, 0) != 0 {
		t.Fatalf("checksum self-verification failed")
	}
}
