package store

import (
	"context"
	"testing"
)

var _ Client = (*Fake)(nil)

func TestFakeGetRoundTrip(t *testing.T) {
	f := NewFake()
	f.PutKV("k", []byte("v"))

	got, err := f.Get(context.Background(), []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("Get = %q, want %q", got, "v")
	}

	if _, err := f.Get(context.Background(), []byte("missing")); err != ErrNotFound {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFakeRevRangeLEPicksGreatestScoreNotExceedingMax(t *testing.T) {
	f := NewFake()
	f.AddRevision("code:c", 10, []byte("r10"))
	f.AddRevision("code:c", 50, []byte("r50"))
	f.AddRevision("code:c", 100, []byte("r100"))

	got, err := f.RevRangeLE(context.Background(), []byte("code:c"), 75)
	if err != nil {
		t.Fatalf("RevRangeLE: %v", err)
	}
	if string(got) != "r50" {
		t.Fatalf("RevRangeLE(75) = %q, want r50", got)
	}

	if _, err := f.RevRangeLE(context.Background(), []byte("code:c"), 5); err != ErrNotFound {
		t.Fatalf("RevRangeLE(5) error = %v, want ErrNotFound", err)
	}
}

func TestFakeScanCompletesInOnePage(t *testing.T) {
	f := NewFake()
	f.PutKV("data:c:a", []byte("1"))
	f.PutKV("data:c:b", []byte("2"))
	f.PutKV("other:x", []byte("3"))

	next, keys, err := f.Scan(context.Background(), "0", []byte("data:c:*"), 10)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if next != "0" {
		t.Fatalf("Scan cursor = %q, want 0 (scan complete)", next)
	}
	if len(keys) != 2 {
		t.Fatalf("Scan returned %d keys, want 2: %q", len(keys), keys)
	}
}
