// Package reassembly orders out-of-order byte ranges arriving by absolute
// stream index and pushes the contiguous prefix they form into a
// downstream stream.ByteStream.
package reassembly

import "github.com/tinyrange/tcpipcore/internal/stream"

// segment is a pending, disjoint byte range keyed by its absolute stream
// index. The pending set is kept sorted by start.
type segment struct {
	start uint64
	data  []byte
}

func (s segment) end() uint64 {
	return s.start + uint64(len(s.data))
}

// merge combines s with other, which must overlap or abut it. Where the
// two disagree on a byte (only possible for malformed input — TCP
// guarantees overlapping retransmits are identical), other's bytes win:
// callers always pass the earlier-arrived (already-pending) segment as
// other, so on conflict the pending side's bytes are kept.
func (s segment) merge(other segment) segment {
	mergedStart := s.start
	if other.start < mergedStart {
		mergedStart = other.start
	}
	mergedEnd := s.end()
	if other.end() > mergedEnd {
		mergedEnd = other.end()
	}

	merged := make([]byte, mergedEnd-mergedStart)
	copy(merged[s.start-mergedStart:], s.data)
	copy(merged[other.start-mergedStart:], other.data)

	return segment{start: mergedStart, data: merged}
}

// Reassembler orders arriving (index, bytes, isLast) fragments and writes
// the contiguous prefix they form into its output ByteStream.
type Reassembler struct {
	output   *stream.ByteStream
	pending  []segment
	eofIndex *uint64
}

// New creates a Reassembler writing into output.
func New(output *stream.ByteStream) *Reassembler {
	return &Reassembler{output: output}
}

// Insert delivers a byte range [firstIndex, firstIndex+len(data)) of the
// stream. If isLast, firstIndex+len(data) is recorded as the end-of-stream
// index.
func (r *Reassembler) Insert(firstIndex uint64, data []byte, isLast bool) {
	if isLast {
		eof := firstIndex + uint64(len(data))
		r.eofIndex = &eof
	}

	firstUnassembled := r.output.BytesPushed()
	firstUnacceptable := firstUnassembled + uint64(r.output.AvailableCapacity())

	start := firstIndex
	end := firstIndex + uint64(len(data))

	if end <= firstUnassembled || start >= firstUnacceptable {
		r.closeIfDone(firstUnassembled)
		return
	}

	if start < firstUnassembled {
		data = data[firstUnassembled-start:]
		start = firstUnassembled
	}
	if end > firstUnacceptable {
		data = data[:len(data)-int(end-firstUnacceptable)]
		end = firstUnacceptable
	}

	if end <= start {
		r.closeIfDone(firstUnassembled)
		return
	}

	seg := segment{start: start, data: data}
	r.insertMerged(seg)
	r.flushReady()
	r.closeIfDone(r.output.BytesPushed())
}

// insertMerged inserts seg into the sorted pending list, merging with any
// overlapping or abutting neighbor (an existing segment whose end reaches
// seg's start counts as abutting).
func (r *Reassembler) insertMerged(seg segment) {
	i := 0
	for i < len(r.pending) && r.pending[i].start < seg.start {
		i++
	}

	if i > 0 && r.pending[i-1].end() >= seg.start {
		seg = seg.merge(r.pending[i-1])
		r.pending = append(r.pending[:i-1], r.pending[i:]...)
		i--
	}

	for i < len(r.pending) && r.pending[i].start <= seg.end() {
		seg = seg.merge(r.pending[i])
		r.pending = append(r.pending[:i], r.pending[i+1:]...)
	}

	r.pending = append(r.pending, segment{})
	copy(r.pending[i+1:], r.pending[i:])
	r.pending[i] = seg
}

// flushReady pushes every pending segment that has become the stream's
// next unassembled byte into the output stream.
func (r *Reassembler) flushReady() {
	for len(r.pending) > 0 && r.pending[0].start == r.output.BytesPushed() {
		front := r.pending[0]
		r.output.Push(front.data)
		r.pending = r.pending[1:]
	}
}

func (r *Reassembler) closeIfDone(firstUnassembled uint64) {
	if r.eofIndex != nil && firstUnassembled == *r.eofIndex {
		r.output.Close()
	}
}

// BytesPending returns how many bytes are buffered but not yet delivered.
// For tests only; the Reassembler stores no separate count.
func (r *Reassembler) BytesPending() int {
	n := 0
	for _, seg := range r.pending {
		n += len(seg.data)
	}
	return n
}
