package tcp

import (
	"github.com/tinyrange/tcpipcore/internal/seqnum"
	"github.com/tinyrange/tcpipcore/internal/stream"
)

// TransmitFunc is the caller-supplied sink a Sender hands outgoing
// segments to. It must not re-enter the Sender.
type TransmitFunc func(SenderMessage)

// outstanding is one sent-but-unacknowledged segment, keyed by the
// absolute sequence number of its first byte. The outstanding list is a
// FIFO ordered by AbsSeqno ascending; a slice gives O(1) pop-front via
// reslicing, which is all this needs (no mid-list removal).
type outstanding struct {
	msg      SenderMessage
	absSeqno uint64
}

// Sender reads from an input ByteStream and produces segments with
// SYN/FIN/RST, managing the outstanding queue, RTO timer, zero-window
// probing, and exponential backoff.
type Sender struct {
	input *stream.ByteStream
	isn   seqnum.Wrap32

	initialRTOMs uint64
	rtoMs        uint64

	nextSeqnoAbs    uint64
	lastAckAbs      uint64
	bytesInFlight   uint64
	timeSinceTxMs   uint64
	consecutiveRetx uint64
	windowSize      uint16
	timerRunning    bool
	synSent         bool
	finSent         bool

	outstanding []outstanding
}

// NewSender creates a Sender over input with the given ISN and initial
// RTO (milliseconds).
func NewSender(input *stream.ByteStream, isn seqnum.Wrap32, initialRTOMs uint64) *Sender {
	return &Sender{
		input:        input,
		isn:          isn,
		initialRTOMs: initialRTOMs,
		rtoMs:        initialRTOMs,
		windowSize:   65535,
	}
}

// SequenceNumbersInFlight reports how many sequence numbers are currently
// outstanding. For tests.
func (s *Sender) SequenceNumbersInFlight() uint64 {
	return s.bytesInFlight
}

// ConsecutiveRetransmissions reports the current retransmit streak. For
// tests.
func (s *Sender) ConsecutiveRetransmissions() uint64 {
	return s.consecutiveRetx
}

// MakeEmptyMessage returns a zero-length segment at the current send
// sequence number, with RST reflecting error state.
func (s *Sender) MakeEmptyMessage() SenderMessage {
	return SenderMessage{
		Seqno: seqnum.Wrap(s.nextSeqnoAbs, s.isn),
		RST:   s.input.HasError(),
	}
}

// Push fills the send window with segments read from the input stream,
// handing each to transmit as it is built.
func (s *Sender) Push(transmit TransmitFunc) {
	if s.input.HasError() {
		msg := s.MakeEmptyMessage()
		msg.RST = true
		transmit(msg)
		return
	}

	effectiveWindow := uint64(s.windowSize)
	if effectiveWindow == 0 {
		effectiveWindow = 1 // zero-window probe
	}

	for s.bytesInFlight < effectiveWindow {
		msg := SenderMessage{Seqno: seqnum.Wrap(s.nextSeqnoAbs, s.isn)}

		remaining := effectiveWindow - s.bytesInFlight

		if !s.synSent {
			if remaining == 0 {
				break
			}
			msg.SYN = true
			s.synSent = true
			remaining--
		}

		payloadLen := remaining
		if payloadLen > MaxPayloadSize {
			payloadLen = MaxPayloadSize
		}
		if buffered := uint64(s.input.BytesBuffered()); payloadLen > buffered {
			payloadLen = buffered
		}
		if payloadLen > 0 {
			msg.Payload = make([]byte, payloadLen)
			s.readInto(msg.Payload)
			remaining -= payloadLen
		}

		if !s.finSent && s.input.IsFinished() && remaining > 0 {
			msg.FIN = true
			s.finSent = true
			remaining--
		}

		segLen := msg.SequenceLength()
		if segLen == 0 {
			break
		}

		transmit(msg)
		s.outstanding = append(s.outstanding, outstanding{msg: msg, absSeqno: s.nextSeqnoAbs})

		s.nextSeqnoAbs += uint64(segLen)
		s.bytesInFlight += uint64(segLen)

		if !s.timerRunning {
			s.timerRunning = true
			s.timeSinceTxMs = 0
		}

		if s.finSent || (s.input.BytesBuffered() == 0 && !s.input.IsFinished()) {
			break
		}
	}
}

// readInto pops len(dst) bytes from the input stream into dst, handling a
// ring-buffer wrap.
func (s *Sender) readInto(dst []byte) {
	n := len(dst)
	pos := 0
	for pos < n {
		chunk := s.input.Peek()
		if len(chunk) > n-pos {
			chunk = chunk[:n-pos]
		}
		copy(dst[pos:], chunk)
		s.input.Pop(len(chunk))
		pos += len(chunk)
	}
}

// Receive processes an inbound ReceiverMessage: ack, window update, RST.
func (s *Sender) Receive(msg ReceiverMessage) {
	if msg.RST {
		s.input.SetError()
		return
	}

	s.windowSize = msg.WindowSize

	if !msg.HasAckno {
		return // pre-handshake: no ackno yet
	}

	ackAbs := msg.Ackno.Unwrap(s.isn, s.nextSeqnoAbs)

	if ackAbs > s.nextSeqnoAbs {
		return // impossible ack, ignore
	}
	if ackAbs <= s.lastAckAbs {
		return // duplicate or old ack
	}

	s.lastAckAbs = ackAbs
	s.bytesInFlight = s.nextSeqnoAbs - s.lastAckAbs

	for len(s.outstanding) > 0 {
		front := s.outstanding[0]
		segEnd := front.absSeqno + uint64(front.msg.SequenceLength())
		if segEnd > s.lastAckAbs {
			break
		}
		s.outstanding = s.outstanding[1:]
	}

	s.consecutiveRetx = 0
	s.rtoMs = s.initialRTOMs
	s.timeSinceTxMs = 0
	s.timerRunning = s.bytesInFlight > 0
}

// Tick advances the retransmission timer by ms and retransmits the
// oldest outstanding segment if the RTO has elapsed.
func (s *Sender) Tick(ms uint64, transmit TransmitFunc) {
	if !s.timerRunning || s.bytesInFlight == 0 {
		return
	}

	s.timeSinceTxMs += ms

	if s.timeSinceTxMs < s.rtoMs || len(s.outstanding) == 0 {
		return
	}

	transmit(s.outstanding[0].msg)
	s.timeSinceTxMs = 0

	s.consecutiveRetx++
	if s.windowSize > 0 {
		s.rtoMs <<= 1
	}

	if s.consecutiveRetx > MaxRetxAttempts {
		s.input.SetError()
	}
}
