package common

import "testing"

func TestBytesToHash(t *testing.T) {
	h := BytesToHash([]byte{1, 2, 3})
	want := Hash{}
	want[29], want[30], want[31] = 1, 2, 3
	if h != want {
		t.Fatalf("BytesToHash mismatch: got %x want %x", h, want)
	}
}

func TestHashTextRoundTrip(t *testing.T) {
	h := BytesToHash([]byte("some revision"))
	text, err := h.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	var got Hash
	if err := got.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if got != h {
		t.Fatalf("round trip mismatch: got %x want %x", got, h)
	}
}

func TestHashIsZero(t *testing.T) {
	var z Hash
	if !z.IsZero() {
		t.Fatalf("zero value should report IsZero")
	}
	if BytesToHash([]byte{1}).IsZero() {
		t.Fatalf("non-zero hash reported IsZero")
	}
}
