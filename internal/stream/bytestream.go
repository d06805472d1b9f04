// Package stream implements the bounded, in-order byte pipe that sits under
// the reassembler and the TCP sender/receiver: a single-producer,
// single-consumer ring buffer with a closable write end and a sticky error
// flag.
package stream

// ByteStream is a fixed-capacity ring buffer with a writer half and a
// reader half. It has exactly one owner at a time (a Reassembler's output
// or a Sender's input), so it carries no internal locking — callers drive
// it only from Push/Close/Peek/Pop, never concurrently.
type ByteStream struct {
	capacity int
	buf      []byte

	bytesPushed uint64
	bytesPopped uint64

	closed  bool
	errored bool
}

// New creates a ByteStream with the given fixed capacity.
func New(capacity int) *ByteStream {
	return &ByteStream{
		capacity: capacity,
		buf:      make([]byte, capacity),
	}
}

// Push appends up to AvailableCapacity bytes of data to the stream. Excess
// bytes are silently dropped. A push after Close is a silent no-op: the
// data is discarded and no error is reported. The error flag does not
// affect Push.
func (s *ByteStream) Push(data []byte) {
	if s.closed {
		return
	}

	toWrite := len(data)
	if avail := s.AvailableCapacity(); toWrite > avail {
		toWrite = avail
	}
	if toWrite == 0 {
		return
	}

	rear := int(s.bytesPushed % uint64(s.capacity))
	pos := 0

	if rear+toWrite > s.capacity {
		firstPart := s.capacity - rear
		copy(s.buf[rear:], data[pos:pos+firstPart])
		rear = 0
		pos += firstPart
		toWrite -= firstPart
		s.bytesPushed += uint64(firstPart)
	}

	copy(s.buf[rear:rear+toWrite], data[pos:pos+toWrite])
	s.bytesPushed += uint64(toWrite)
}

// Close marks the end of the stream. Subsequent pushes are no-ops.
func (s *ByteStream) Close() {
	s.closed = true
}

// IsClosed reports whether Close has been called.
func (s *ByteStream) IsClosed() bool {
	return s.closed
}

// AvailableCapacity is how many more bytes may currently be pushed.
func (s *ByteStream) AvailableCapacity() int {
	return s.capacity - int(s.bytesPushed-s.bytesPopped)
}

// BytesPushed is the monotone total of bytes ever pushed.
func (s *ByteStream) BytesPushed() uint64 {
	return s.bytesPushed
}

// BytesPopped is the monotone total of bytes ever popped.
func (s *ByteStream) BytesPopped() uint64 {
	return s.bytesPopped
}

// BytesBuffered is how many bytes are currently readable.
func (s *ByteStream) BytesBuffered() int {
	return int(s.bytesPushed - s.bytesPopped)
}

// Peek returns a view onto the oldest contiguous run of readable bytes.
// When the ring has wrapped, this may be shorter than BytesBuffered; the
// caller should Pop what it consumed and Peek again for the remainder.
func (s *ByteStream) Peek() []byte {
	buffered := s.BytesBuffered()
	if buffered == 0 {
		return nil
	}

	front := int(s.bytesPopped % uint64(s.capacity))
	firstLen := s.capacity - front
	if firstLen > buffered {
		firstLen = buffered
	}
	return s.buf[front : front+firstLen]
}

// Pop removes n bytes from the front of the stream. Popping more bytes
// than are buffered is a programming error and panics, matching the
// lab's assertion.
func (s *ByteStream) Pop(n int) {
	if n > s.BytesBuffered() {
		panic("stream: pop of more bytes than buffered")
	}
	s.bytesPopped += uint64(n)
}

// IsFinished reports whether the stream is closed and fully drained.
func (s *ByteStream) IsFinished() bool {
	return s.closed && s.BytesBuffered() == 0
}

// HasError reports the sticky error flag.
func (s *ByteStream) HasError() bool {
	return s.errored
}

// SetError sets the sticky error flag. It never clears.
func (s *ByteStream) SetError() {
	s.errored = true
}
