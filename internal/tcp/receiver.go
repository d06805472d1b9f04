package tcp

import (
	"github.com/tinyrange/tcpipcore/internal/reassembly"
	"github.com/tinyrange/tcpipcore/internal/seqnum"
	"github.com/tinyrange/tcpipcore/internal/stream"
)

// Receiver consumes sender-side segments, drives a Reassembler, and emits
// window/ackno back to the peer. Once its ISN is learned from a SYN, it
// never changes.
type Receiver struct {
	reassembler *reassembly.Reassembler
	output      *stream.ByteStream

	isn    seqnum.Wrap32
	hasISN bool
}

// NewReceiver creates a Receiver writing reassembled bytes into output.
func NewReceiver(output *stream.ByteStream) *Receiver {
	return &Receiver{
		reassembler: reassembly.New(output),
		output:      output,
	}
}

// Receive processes one inbound segment.
func (r *Receiver) Receive(msg SenderMessage) {
	if msg.RST {
		r.output.SetError()
		return
	}

	if !r.hasISN {
		if !msg.SYN {
			return // drop anything before the connection is established
		}
		r.isn = msg.Seqno
		r.hasISN = true
	} else if msg.SYN {
		return // ISN already fixed; ignore a duplicate SYN
	}

	checkpoint := r.output.BytesPushed() + 1
	if r.output.IsClosed() {
		checkpoint++
	}
	absSeqno := msg.Seqno.Unwrap(r.isn, checkpoint)

	streamIndex := absSeqno - 1
	if msg.SYN {
		streamIndex = 0
	}

	r.reassembler.Insert(streamIndex, msg.Payload, msg.FIN)
}

// Send produces the Receiver's current window/ackno/RST message.
func (r *Receiver) Send() ReceiverMessage {
	windowSize := r.output.AvailableCapacity()
	if windowSize > 65535 {
		windowSize = 65535
	}

	msg := ReceiverMessage{
		WindowSize: uint16(windowSize),
		RST:        r.output.HasError(),
	}

	if !r.hasISN {
		return msg
	}

	absAck := r.output.BytesPushed() + 1
	if r.output.IsClosed() {
		absAck++
	}
	msg.Ackno = seqnum.Wrap(absAck, r.isn)
	msg.HasAckno = true
	return msg
}
