package main

import "testing"

// TestTailBuffer_HoldsPartialLines keeps incomplete data until its newline
// arrives.
func TestTailBuffer_HoldsPartialLines(t *testing.T) {
	var buf tailBuffer

	if lines := buf.split([]byte("hel")); len(lines) != 0 {
		t.Errorf("got %v before any newline, want none", lines)
	}
	lines := buf.split([]byte("lo\nwor"))
	if len(lines) != 1 || lines[0] != "hello" {
		t.Errorf("got %v, want [hello]", lines)
	}
	lines = buf.split([]byte("ld\n"))
	if len(lines) != 1 || lines[0] != "world" {
		t.Errorf("got %v, want [world]", lines)
	}
}

// TestTailBuffer_SplitsMultipleLines returns every completed line in order.
func TestTailBuffer_SplitsMultipleLines(t *testing.T) {
	var buf tailBuffer

	lines := buf.split([]byte("one\ntwo\nthree\n"))
	want := []string{"one", "two", "three"}
	if len(lines) != len(want) {
		t.Fatalf("got %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

// TestTailBuffer_SkipsBlankLines drops empty and whitespace-only lines.
func TestTailBuffer_SkipsBlankLines(t *testing.T) {
	var buf tailBuffer

	lines := buf.split([]byte("first\n\n   \nsecond\n"))
	if len(lines) != 2 || lines[0] != "first" || lines[1] != "second" {
		t.Errorf("got %v, want [first second]", lines)
	}
}

// TestTailBuffer_TrimsCarriageReturns handles CRLF line endings.
func TestTailBuffer_TrimsCarriageReturns(t *testing.T) {
	var buf tailBuffer

	lines := buf.split([]byte("alpha\r\nbeta\r\n"))
	if len(lines) != 2 || lines[0] != "alpha" || lines[1] != "beta" {
		t.Errorf("got %v, want [alpha beta]", lines)
	}
}

// TestTailBuffer_Reset discards held data after a truncation.
func TestTailBuffer_Reset(t *testing.T) {
	var buf tailBuffer

	buf.split([]byte("orphaned partial"))
	buf.reset()

	lines := buf.split([]byte("fresh\n"))
	if len(lines) != 1 || lines[0] != "fresh" {
		t.Errorf("got %v after reset, want [fresh]", lines)
	}
}
