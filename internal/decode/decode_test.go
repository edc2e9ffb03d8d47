package decode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/airframesio/pg2parquet/internal/logical"
)

func TestDecode_Null(t *testing.T) {
	v, err := Decode(nil, logical.NewInt(32, true))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNull {
		t.Fatalf("expected KindNull, got %v", v.Kind)
	}
}

func TestDecode_Int32Signed(t *testing.T) {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, uint32(int32(-7)))
	v, err := Decode(raw, logical.NewInt(32, true))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindInt || v.Int != -7 {
		t.Fatalf("got %+v", v)
	}
}

func TestDecode_Uint32Unsigned(t *testing.T) {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, 4000000000)
	v, err := Decode(raw, logical.NewInt(32, false))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindUint || v.Uint != 4000000000 {
		t.Fatalf("got %+v", v)
	}
}

func TestDecode_Float64(t *testing.T) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, math.Float64bits(3.25))
	v, err := Decode(raw, logical.NewFloat(64))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindFloat || v.Float != 3.25 {
		t.Fatalf("got %+v", v)
	}
}

// buildNumericWire encodes digits (each 0..9999) with the given weight,
// sign, and dscale the way PostgreSQL's numeric_send does, for use as
// test fixtures.
func buildNumericWire(t *testing.T, weight int16, sign uint16, dscale uint16, digits []int16) []byte {
	t.Helper()
	buf := make([]byte, 8+len(digits)*2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(digits)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(weight))
	binary.BigEndian.PutUint16(buf[4:6], sign)
	binary.BigEndian.PutUint16(buf[6:8], dscale)
	for i, d := range digits {
		binary.BigEndian.PutUint16(buf[8+i*2:10+i*2], uint16(d))
	}
	return buf
}

func TestDecode_NumericPositive(t *testing.T) {
	// 1000.0001 : weight=0 (digit group at 10^0), digits [1000, 0001]
	raw := buildNumericWire(t, 0, 0x0000, 4, []int16{1000, 1})
	v, err := Decode(raw, logical.NewDecimal(10, 4, logical.DecimalInt64))
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind != KindNumeric || v.Numeric.NaN {
		t.Fatalf("got %+v", v)
	}
	if got := v.Numeric.Value.String(); got != "1000.0001" {
		t.Fatalf("got %s, want 1000.0001", got)
	}
}

func TestDecode_NumericNegative(t *testing.T) {
	raw := buildNumericWire(t, 0, 0x4000, 4, []int16{1, 1000})
	v, err := Decode(raw, logical.NewDecimal(10, 4, logical.DecimalInt64))
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Numeric.Value.String(); got != "-1.1" {
		t.Fatalf("got %s, want -1.1", got)
	}
}

func TestDecode_NumericNaN(t *testing.T) {
	raw := buildNumericWire(t, 0, numericNaN, 4, nil)
	v, err := Decode(raw, logical.NewDecimal(10, 4, logical.DecimalInt64))
	if err != nil {
		t.Fatal(err)
	}
	if !v.Numeric.NaN {
		t.Fatal("expected NaN")
	}
}

func TestDecode_NumericCarriesDScale(t *testing.T) {
	// numeric(10,5) storing 1000.0001 at dscale 5: the wire dscale must
	// survive decoding even though it doesn't affect the exact value,
	// since --numeric-handling=string needs it to reproduce PostgreSQL's
	// own trailing-zero-padded text form ("1000.00010").
	raw := buildNumericWire(t, 0, 0x0000, 5, []int16{1000, 1})
	v, err := Decode(raw, logical.NewDecimal(10, 5, logical.DecimalInt64))
	if err != nil {
		t.Fatal(err)
	}
	if v.Numeric.DScale != 5 {
		t.Fatalf("got dscale %d, want 5", v.Numeric.DScale)
	}
}

func TestDecode_DateEpochShift(t *testing.T) {
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, 0) // 2000-01-01 in PG's own epoch
	v, err := Decode(raw, logical.NewDate())
	if err != nil {
		t.Fatal(err)
	}
	if v.Int != postgresEpochOffsetDays {
		t.Fatalf("got %d, want %d (days from 1970-01-01 to 2000-01-01)", v.Int, postgresEpochOffsetDays)
	}
}

func TestDecode_Interval(t *testing.T) {
	raw := make([]byte, 16)
	binary.BigEndian.PutUint64(raw[0:8], uint64(int64(40*3600*1_000_000+5*60*1_000_000+6*1_000_000+1)))
	binary.BigEndian.PutUint32(raw[8:12], 1)
	binary.BigEndian.PutUint32(raw[12:16], 14)
	v, err := Decode(raw, logical.NewIntervalStruct())
	if err != nil {
		t.Fatal(err)
	}
	if v.Interval.Months != 14 || v.Interval.Days != 1 {
		t.Fatalf("got %+v", v.Interval)
	}
	wantMicros := int64(40*3600*1_000_000 + 5*60*1_000_000 + 6*1_000_000 + 1)
	if v.Interval.Microseconds != wantMicros {
		t.Fatalf("got %d, want %d", v.Interval.Microseconds, wantMicros)
	}
}

func TestDecode_ArrayBasic(t *testing.T) {
	// {1, NULL, 3}, a 1-dim int4 array.
	buf := make([]byte, 0, 64)
	putInt32 := func(v int32) {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, uint32(v))
		buf = append(buf, b...)
	}
	putInt32(1)  // ndim
	putInt32(0)  // hasnull flag (unused by decoder)
	putInt32(23) // element oid (int4, unused by decoder)
	putInt32(3)  // dim length
	putInt32(1)  // lower bound
	putInt32(4)  // elem 0: length prefix
	putInt32(1)  // elem 0: value
	putInt32(-1) // elem 1: NULL
	putInt32(4)  // elem 2: length prefix
	putInt32(3)  // elem 2: value

	elemType := logical.NewInt(32, true)
	arrType := logical.NewArray(elemType, logical.ArrayFlat)
	v, err := Decode(buf, arrType)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(v.Elements))
	}
	if v.Elements[0].Int != 1 || v.Elements[1].Kind != KindNull || v.Elements[2].Int != 3 {
		t.Fatalf("got %+v", v.Elements)
	}
}

func TestDecode_ArrayEmpty(t *testing.T) {
	buf := make([]byte, 12) // ndim=0, hasnull=0, elemoid=0
	v, err := Decode(buf, logical.NewArray(logical.NewInt(32, true), logical.ArrayFlat))
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Elements) != 0 || len(v.Dims) != 0 {
		t.Fatalf("got %+v", v)
	}
}

func TestDecode_RangeEmpty(t *testing.T) {
	v, err := Decode([]byte{rangeEmpty}, logical.NewRange(logical.NewInt(32, true)))
	if err != nil {
		t.Fatal(err)
	}
	if !v.RangeEmpty || v.RangeLower != nil || v.RangeUpper != nil {
		t.Fatalf("got %+v", v)
	}
}

func TestDecode_RangeBounded(t *testing.T) {
	putLengthPrefixedInt32 := func(buf []byte, v int32) []byte {
		lenBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(lenBuf, 4)
		valBuf := make([]byte, 4)
		binary.BigEndian.PutUint32(valBuf, uint32(v))
		buf = append(buf, lenBuf...)
		return append(buf, valBuf...)
	}

	buf := []byte{rangeLowerInc}
	buf = putLengthPrefixedInt32(buf, 1)
	buf = putLengthPrefixedInt32(buf, 2)

	v, err := Decode(buf, logical.NewRange(logical.NewInt(32, true)))
	if err != nil {
		t.Fatal(err)
	}
	if v.RangeEmpty {
		t.Fatal("range should not be empty")
	}
	if v.RangeLower == nil || v.RangeLower.Int != 1 {
		t.Fatalf("got lower %+v", v.RangeLower)
	}
	if v.RangeUpper == nil || v.RangeUpper.Int != 2 {
		t.Fatalf("got upper %+v", v.RangeUpper)
	}
	if !v.RangeLowerInclusive || v.RangeUpperInclusive {
		t.Fatalf("got inclusivity lower=%v upper=%v", v.RangeLowerInclusive, v.RangeUpperInclusive)
	}
}

func TestDecode_BitString(t *testing.T) {
	// bit '1011' (4 bits, packed into one byte: 1011 0000)
	raw := make([]byte, 4)
	binary.BigEndian.PutUint32(raw, 4)
	raw = append(raw, 0b1011_0000)

	v, err := Decode(raw, logical.NewBitString())
	if err != nil {
		t.Fatal(err)
	}
	if string(v.Bytes) != "1011" {
		t.Fatalf("got %q, want %q", v.Bytes, "1011")
	}
}

func TestDecode_Vector(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], 2)
	binary.BigEndian.PutUint16(buf[2:4], 0)
	f := make([]byte, 4)
	binary.BigEndian.PutUint32(f, math.Float32bits(1.5))
	buf = append(buf, f...)
	binary.BigEndian.PutUint32(f, math.Float32bits(-2.5))
	buf = append(buf, f...)

	v, err := Decode(buf, logical.NewVector(2))
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Vector) != 2 || v.Vector[0] != 1.5 || v.Vector[1] != -2.5 {
		t.Fatalf("got %+v", v.Vector)
	}
}

func TestFloat16BitsToFloat32(t *testing.T) {
	cases := []struct {
		bits uint16
		want float32
	}{
		{0x3C00, 1.0},
		{0xC000, -2.0},
		{0x0000, 0.0},
	}
	for _, tc := range cases {
		got := float16BitsToFloat32(tc.bits)
		if got != tc.want {
			t.Fatalf("bits=%#x: got %v, want %v", tc.bits, got, tc.want)
		}
	}
}
