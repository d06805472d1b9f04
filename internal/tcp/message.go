// Package tcp implements the reliable byte-stream transport: a Receiver
// that drives a Reassembler from inbound segments, and a Sender that fills
// the window from an outbound ByteStream with retransmission, window
// control, and connection-lifecycle flags.
package tcp

import "github.com/tinyrange/tcpipcore/internal/seqnum"

// MaxPayloadSize bounds how many payload bytes a single segment carries.
const MaxPayloadSize = 1000

// MaxRetxAttempts is the number of consecutive retransmissions tolerated
// before the sender gives up and flags both ends of its stream as errored.
const MaxRetxAttempts = 8

// SenderMessage is a segment traveling from a Sender to its peer Receiver.
type SenderMessage struct {
	Seqno   seqnum.Wrap32
	SYN     bool
	Payload []byte
	FIN     bool
	RST     bool
}

// SequenceLength is SYN + len(Payload) + FIN, the number of sequence
// numbers this segment occupies.
func (m SenderMessage) SequenceLength() int {
	n := len(m.Payload)
	if m.SYN {
		n++
	}
	if m.FIN {
		n++
	}
	return n
}

// ReceiverMessage is sent from a Receiver back to the peer Sender:
// acknowledgment, advertised window, and any reset.
type ReceiverMessage struct {
	Ackno      seqnum.Wrap32
	HasAckno   bool
	WindowSize uint16
	RST        bool
}
