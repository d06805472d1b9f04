package stream

import (
	"bytes"
	"testing"
)

func readAll(s *ByteStream) []byte {
	var out []byte
	for s.BytesBuffered() > 0 {
		chunk := s.Peek()
		out = append(out, chunk...)
		s.Pop(len(chunk))
	}
	return out
}

func TestPushPopBasic(t *testing.T) {
	s := New(4)
	s.Push([]byte("ab"))
	if got := s.BytesPushed(); got != 2 {
		t.Fatalf("bytes pushed = %d, want 2", got)
	}
	if got := s.AvailableCapacity(); got != 2 {
		t.Fatalf("available capacity = %d, want 2", got)
	}
	s.Pop(1)
	if got := s.BytesPopped(); got != 1 {
		t.Fatalf("bytes popped = %d, want 1", got)
	}
	if got := string(s.Peek()); got != "b" {
		t.Fatalf("peek = %q, want %q", got, "b")
	}
}

func TestPushDropsExcess(t *testing.T) {
	s := New(4)
	s.Push([]byte("abcdef"))
	if got := s.BytesPushed(); got != 4 {
		t.Fatalf("bytes pushed = %d, want 4 (excess dropped)", got)
	}
}

func TestWrapAround(t *testing.T) {
	// capacity=4; push "abcd", pop 2, push "ef" -> peek "cdef" across two views.
	s := New(4)
	s.Push([]byte("abcd"))
	s.Pop(2)
	s.Push([]byte("ef"))

	if got := s.BytesBuffered(); got != 4 {
		t.Fatalf("bytes buffered = %d, want 4", got)
	}
	got := readAll(s)
	if !bytes.Equal(got, []byte("cdef")) {
		t.Fatalf("readAll = %q, want %q", got, "cdef")
	}
}

func TestCloseStopsWrites(t *testing.T) {
	s := New(4)
	s.Close()
	s.Push([]byte("x"))
	if s.BytesPushed() != 0 {
		t.Fatalf("push after close should be a silent no-op")
	}
	if !s.IsFinished() {
		t.Fatalf("closed + empty stream should be finished")
	}
}

func TestIsFinishedRequiresDrain(t *testing.T) {
	s := New(4)
	s.Push([]byte("a"))
	s.Close()
	if s.IsFinished() {
		t.Fatalf("stream with buffered bytes should not be finished")
	}
	s.Pop(1)
	if !s.IsFinished() {
		t.Fatalf("drained closed stream should be finished")
	}
}

func TestErrorIsSticky(t *testing.T) {
	s := New(4)
	s.SetError()
	if !s.HasError() {
		t.Fatalf("expected error flag set")
	}
	// Pushing and closing shouldn't clear it — error is orthogonal to closed.
	s.Push([]byte("a"))
	s.Close()
	if !s.HasError() {
		t.Fatalf("error flag should remain sticky")
	}
}

func TestPopTooManyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic popping more bytes than buffered")
		}
	}()
	s := New(4)
	s.Push([]byte("a"))
	s.Pop(2)
}
