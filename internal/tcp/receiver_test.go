package tcp

import (
	"testing"

	"github.com/tinyrange/tcpipcore/internal/seqnum"
	"github.com/tinyrange/tcpipcore/internal/stream"
)

func TestReceiverIgnoresDataBeforeSYN(t *testing.T) {
	out := stream.New(1000)
	r := NewReceiver(out)

	r.Receive(SenderMessage{Seqno: seqnum.Wrap(5, seqnum.Wrap32{}), Payload: []byte("hi")})
	if out.BytesPushed() != 0 {
		t.Fatalf("expected no data accepted before SYN")
	}

	msg := r.Send()
	if msg.HasAckno {
		t.Fatalf("expected no ackno before SYN")
	}
}

func TestReceiverSYNThenData(t *testing.T) {
	out := stream.New(1000)
	r := NewReceiver(out)
	isn := seqnum.Wrap(0, seqnum.Wrap32{})

	r.Receive(SenderMessage{Seqno: isn, SYN: true})
	msg := r.Send()
	if !msg.HasAckno || msg.Ackno.Raw() != seqnum.Wrap(1, isn).Raw() {
		t.Fatalf("expected ackno = isn+1 after SYN")
	}

	r.Receive(SenderMessage{Seqno: seqnum.Wrap(1, isn), Payload: []byte("hello")})
	if got := string(out.Peek()); got != "hello" {
		t.Fatalf("stream contents = %q, want %q", got, "hello")
	}

	msg = r.Send()
	wantAck := seqnum.Wrap(1+uint64(len("hello")), isn)
	if msg.Ackno.Raw() != wantAck.Raw() {
		t.Fatalf("ackno after data = %v, want %v", msg.Ackno.Raw(), wantAck.Raw())
	}
}

func TestReceiverFINClosesStream(t *testing.T) {
	out := stream.New(1000)
	r := NewReceiver(out)
	isn := seqnum.Wrap(0, seqnum.Wrap32{})

	r.Receive(SenderMessage{Seqno: isn, SYN: true})
	r.Receive(SenderMessage{Seqno: seqnum.Wrap(1, isn), FIN: true})

	if !out.IsClosed() {
		t.Fatalf("expected stream closed after FIN")
	}
	msg := r.Send()
	wantAck := seqnum.Wrap(2, isn) // +1 SYN +1 FIN
	if msg.Ackno.Raw() != wantAck.Raw() {
		t.Fatalf("ackno after FIN = %v, want %v", msg.Ackno.Raw(), wantAck.Raw())
	}
}

func TestReceiverRSTSetsError(t *testing.T) {
	out := stream.New(1000)
	r := NewReceiver(out)
	r.Receive(SenderMessage{RST: true})
	msg := r.Send()
	if !msg.RST {
		t.Fatalf("expected RST reflected in receiver message")
	}
}

func TestReceiverIgnoresDuplicateSYN(t *testing.T) {
	out := stream.New(1000)
	r := NewReceiver(out)
	isn := seqnum.Wrap(100, seqnum.Wrap32{})

	r.Receive(SenderMessage{Seqno: isn, SYN: true})
	// A second SYN with a different seqno must be ignored - ISN never changes.
	r.Receive(SenderMessage{Seqno: seqnum.Wrap(500, seqnum.Wrap32{}), SYN: true})

	msg := r.Send()
	want := seqnum.Wrap(1, isn)
	if msg.Ackno.Raw() != want.Raw() {
		t.Fatalf("ISN changed after duplicate SYN: ackno = %v, want %v", msg.Ackno.Raw(), want.Raw())
	}
}

func TestReceiverWindowSizeCapped(t *testing.T) {
	out := stream.New(1 << 20) // bigger than uint16 max
	r := NewReceiver(out)
	msg := r.Send()
	if msg.WindowSize != 65535 {
		t.Fatalf("window size = %d, want capped at 65535", msg.WindowSize)
	}
}
