package catalog

import "testing"

func TestDecodeLengthTypmod(t *testing.T) {
	// varchar(50): typmod = 50+4
	length, ok := decodeLengthTypmod(54)
	if !ok || length != 50 {
		t.Fatalf("got length=%d ok=%v, want 50,true", length, ok)
	}
}

func TestDecodeBitTypmod(t *testing.T) {
	length, ok := decodeBitTypmod(8)
	if !ok || length != 8 {
		t.Fatalf("got length=%d ok=%v, want 8,true", length, ok)
	}
}

func TestDecodeVectorTypmod(t *testing.T) {
	if got := decodeVectorTypmod(3); got != 3 {
		t.Fatalf("got %d, want 3", got)
	}
	if got := decodeVectorTypmod(-1); got != 0 {
		t.Fatalf("got %d, want 0 for unspecified dimension", got)
	}
	if got := decodeVectorTypmod(0); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}
