package utils

import (
	"testing"
	"time"
)

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("GST", 4*3600)
	in := time.Date(2025, 3, 4, 23, 59, 59, 0, loc)
	got := DateOnly(in)
	want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("DateOnly(%v) = %v, want %v", in, got, want)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := FirstNonEmpty("", "", "x", "y"); got != "x" {
		t.Fatalf("expected x, got %q", got)
	}
	if got := FirstNonEmpty("", ""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestPointerHelpers(t *testing.T) {
	if b := NewTrue(); b == nil || !*b {
		t.Fatalf("NewTrue")
	}
	if b := NewFalse(); b == nil || *b {
		t.Fatalf("NewFalse")
	}
	if s := NewString("abc"); s == nil || *s != "abc" {
		t.Fatalf("NewString")
	}
}
