package decode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// decodeVector parses pgvector's `vector` binary wire format: uint16
// dim, uint16 unused (reserved, always 0 on the wire), then dim
// big-endian float32 values.
func decodeVector(raw []byte) (Value, error) {
	floats, err := readVectorFloats(raw)
	if err != nil {
		return Value{}, fmt.Errorf("decode: vector: %w", err)
	}
	return Value{Kind: KindVector, Vector: floats}, nil
}

// decodeHalfVector parses pgvector's `halfvec` binary wire format: the
// same uint16 dim + uint16 unused header as vector, then dim IEEE-754
// binary16 values, each widened to float32 here; a column configured
// for 2-byte storage re-narrows at shred time.
func decodeHalfVector(raw []byte) (Value, error) {
	if len(raw) < 4 {
		return Value{}, fmt.Errorf("decode: halfvec header too short (%d bytes)", len(raw))
	}
	dim := int(binary.BigEndian.Uint16(raw[0:2]))
	want := 4 + dim*2
	if len(raw) != want {
		return Value{}, fmt.Errorf("decode: halfvec payload length mismatch: want %d, got %d", want, len(raw))
	}
	floats := make([]float32, dim)
	for i := 0; i < dim; i++ {
		bits := binary.BigEndian.Uint16(raw[4+i*2 : 6+i*2])
		floats[i] = float16BitsToFloat32(bits)
	}
	return Value{Kind: KindVector, Vector: floats}, nil
}

// decodeSparseVector parses pgvector's `sparsevec` binary wire format:
// int32 dim (full dimensionality), int32 nnz (stored non-zero count),
// int32 unused, then nnz 0-based int32 indices followed by nnz float32
// values. Indices are converted to the 1-based convention PostgreSQL
// uses in sparsevec's external text form (e.g. '{1:-1,5:5.25}/5').
func decodeSparseVector(raw []byte) (Value, error) {
	r := &cursor{buf: raw}
	if _, err := r.int32(); err != nil { // dim; not needed once coordinates are decoded
		return Value{}, fmt.Errorf("decode: sparsevec dim: %w", err)
	}
	nnz, err := r.int32()
	if err != nil {
		return Value{}, fmt.Errorf("decode: sparsevec nnz: %w", err)
	}
	if _, err := r.int32(); err != nil { // unused/reserved
		return Value{}, fmt.Errorf("decode: sparsevec reserved field: %w", err)
	}

	indices := make([]uint32, nnz)
	for i := int32(0); i < nnz; i++ {
		idx, err := r.int32()
		if err != nil {
			return Value{}, fmt.Errorf("decode: sparsevec index %d: %w", i, err)
		}
		indices[i] = uint32(idx) + 1
	}
	values := make([]float32, nnz)
	for i := int32(0); i < nnz; i++ {
		bits, err := r.uint32()
		if err != nil {
			return Value{}, fmt.Errorf("decode: sparsevec value %d: %w", i, err)
		}
		values[i] = math.Float32frombits(bits)
	}

	return Value{Kind: KindSparseVector, SparseIndices: indices, SparseValues: values}, nil
}

func readVectorFloats(raw []byte) ([]float32, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("header too short (%d bytes)", len(raw))
	}
	dim := int(binary.BigEndian.Uint16(raw[0:2]))
	want := 4 + dim*4
	if len(raw) != want {
		return nil, fmt.Errorf("payload length mismatch: want %d, got %d", want, len(raw))
	}
	floats := make([]float32, dim)
	for i := 0; i < dim; i++ {
		bits := binary.BigEndian.Uint32(raw[4+i*4 : 8+i*4])
		floats[i] = math.Float32frombits(bits)
	}
	return floats, nil
}

// float16BitsToFloat32 converts an IEEE-754 binary16 bit pattern to its
// exact float32 value. Every binary16 value is exactly representable in
// float32 since binary16 has fewer exponent and mantissa bits.
func float16BitsToFloat32(bits uint16) float32 {
	sign := uint32(bits>>15) & 0x1
	exp := uint32(bits>>10) & 0x1f
	frac := uint32(bits) & 0x3ff

	var outExp, outFrac uint32
	switch {
	case exp == 0 && frac == 0:
		// Signed zero.
	case exp == 0:
		// Subnormal binary16: normalize into float32's wider exponent range.
		e := 0
		f := frac
		for f&0x400 == 0 {
			f <<= 1
			e--
		}
		f &= 0x3ff
		outExp = uint32(int32(127-15+1+e))
		outFrac = f << 13
	case exp == 0x1f:
		outExp = 0xff
		outFrac = frac << 13 // preserves NaN payload / selects Inf when frac == 0
	default:
		outExp = exp - 15 + 127
		outFrac = frac << 13
	}

	bits32 := sign<<31 | outExp<<23 | outFrac
	return math.Float32frombits(bits32)
}
