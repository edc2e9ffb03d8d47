package decode

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/airframesio/pg2parquet/internal/logical"
)

// numericNaN is PostgreSQL's sentinel sign value (numeric.c NUMERIC_NAN)
// marking a numeric as not-a-number; it is never a valid sign for a
// finite value (those are 0x0000 positive, 0x4000 negative).
const numericNaN = 0xC000

// Decode parses raw, the PostgreSQL binary wire payload for one column
// value, according to t. raw == nil represents SQL NULL and always
// yields Value{Kind: KindNull} regardless of t.
func Decode(raw []byte, t *logical.Type) (Value, error) {
	if raw == nil {
		return nullValue(), nil
	}

	switch t.Kind {
	case logical.Bool:
		return decodeBool(raw)
	case logical.Int:
		return decodeInt(raw, t)
	case logical.Float:
		return decodeFloat(raw, t)
	case logical.Decimal:
		return decodeNumeric(raw)
	case logical.Text:
		if t.BitString {
			return decodeBitString(raw)
		}
		return Value{Kind: KindBytes, Bytes: raw}, nil
	case logical.Char, logical.Bytes:
		return Value{Kind: KindBytes, Bytes: raw}, nil
	case logical.Uuid:
		if len(raw) != 16 {
			return Value{}, fmt.Errorf("decode: uuid payload must be 16 bytes, got %d", len(raw))
		}
		return Value{Kind: KindBytes, Bytes: raw}, nil
	case logical.Date:
		return decodeDate(raw)
	case logical.Time:
		return decodeTimeOfDay(raw)
	case logical.Timestamp, logical.TimestampTz:
		return decodeTimestamp(raw)
	case logical.IntervalDuration, logical.IntervalStruct:
		return decodeInterval(raw)
	case logical.Enum:
		return Value{Kind: KindBytes, Bytes: raw}, nil
	case logical.Array:
		return decodeArray(raw, t)
	case logical.Range:
		return decodeRange(raw, t)
	case logical.Composite:
		return decodeComposite(raw, t)
	case logical.Vector:
		return decodeVector(raw)
	case logical.HalfVector:
		return decodeHalfVector(raw)
	case logical.SparseVector:
		return decodeSparseVector(raw)
	default:
		return Value{}, fmt.Errorf("decode: unhandled logical kind %s", t.Kind)
	}
}

// decodeBitString parses PostgreSQL's bit/varbit binary wire format: an
// int32 bit length, then ceil(bitlen/8) packed bytes (MSB first within
// each byte), rendered here to its '0'/'1' ASCII text form, matching
// spec's chosen Parquet representation for these types (plain UTF8
// strings, not raw bytes).
func decodeBitString(raw []byte) (Value, error) {
	if len(raw) < 4 {
		return Value{}, fmt.Errorf("decode: bit string payload too short (%d bytes)", len(raw))
	}
	bitLen := int(int32(binary.BigEndian.Uint32(raw[0:4])))
	packed := raw[4:]
	want := (bitLen + 7) / 8
	if len(packed) < want {
		return Value{}, fmt.Errorf("decode: bit string payload truncated: want %d packed bytes, got %d", want, len(packed))
	}
	out := make([]byte, bitLen)
	for i := 0; i < bitLen; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		if packed[byteIdx]&(1<<uint(bitIdx)) != 0 {
			out[i] = '1'
		} else {
			out[i] = '0'
		}
	}
	return Value{Kind: KindBytes, Bytes: out}, nil
}

func decodeBool(raw []byte) (Value, error) {
	if len(raw) != 1 {
		return Value{}, fmt.Errorf("decode: bool payload must be 1 byte, got %d", len(raw))
	}
	return Value{Kind: KindBool, Bool: raw[0] != 0}, nil
}

// decodeInt handles PostgreSQL's big-endian fixed-width integer wire
// formats. Widths 8/16/32 arrive as 1, 2 or 4 bytes on the wire
// ("char" and int2 are both sent as their own native width); width 64
// arrives as 8 bytes.
func decodeInt(raw []byte, t *logical.Type) (Value, error) {
	switch len(raw) {
	case 1:
		v := int64(raw[0])
		if t.IntSigned {
			v = int64(int8(raw[0]))
		}
		return intValue(v, t), nil
	case 2:
		u := binary.BigEndian.Uint16(raw)
		v := int64(u)
		if t.IntSigned {
			v = int64(int16(u))
		}
		return intValue(v, t), nil
	case 4:
		u := binary.BigEndian.Uint32(raw)
		v := int64(u)
		if t.IntSigned {
			v = int64(int32(u))
		}
		return intValue(v, t), nil
	case 8:
		u := binary.BigEndian.Uint64(raw)
		v := int64(u)
		return intValue(v, t), nil
	default:
		return Value{}, fmt.Errorf("decode: unsupported integer wire width %d", len(raw))
	}
}

func intValue(v int64, t *logical.Type) Value {
	if !t.IntSigned {
		return Value{Kind: KindUint, Uint: uint64(v)}
	}
	return Value{Kind: KindInt, Int: v}
}

func decodeFloat(raw []byte, t *logical.Type) (Value, error) {
	switch len(raw) {
	case 4:
		return Value{Kind: KindFloat, Float: float64(math.Float32frombits(binary.BigEndian.Uint32(raw)))}, nil
	case 8:
		return Value{Kind: KindFloat, Float: math.Float64frombits(binary.BigEndian.Uint64(raw))}, nil
	default:
		return Value{}, fmt.Errorf("decode: unsupported float wire width %d (want 4 or 8)", len(raw))
	}
}

// decodeNumeric parses PostgreSQL's `numeric` binary representation:
// int16 ndigits, int16 weight, uint16 sign, uint16 dscale, then ndigits
// big-endian int16 base-10000 digit groups. The exact value equals
// D * 10^(4*(weight-ndigits+1)) where D is the digit groups read as one
// base-10000 integer, sign-adjusted. dscale does not affect the exact
// value but is carried through to Numeric.DScale, since
// --numeric-handling=string must render the same trailing-zero-padded
// display form `numeric`'s own text output would (e.g. 1000.0001 stored
// at dscale 5 prints as "1000.00010").
func decodeNumeric(raw []byte) (Value, error) {
	if len(raw) < 8 {
		return Value{}, fmt.Errorf("decode: numeric payload too short (%d bytes)", len(raw))
	}
	ndigits := int(binary.BigEndian.Uint16(raw[0:2]))
	weight := int16(binary.BigEndian.Uint16(raw[2:4]))
	sign := binary.BigEndian.Uint16(raw[4:6])
	dscale := int(binary.BigEndian.Uint16(raw[6:8]))

	if sign == numericNaN {
		return Value{Kind: KindNumeric, Numeric: Numeric{NaN: true}}, nil
	}

	want := 8 + ndigits*2
	if len(raw) < want {
		return Value{}, fmt.Errorf("decode: numeric payload truncated: want %d bytes, got %d", want, len(raw))
	}

	d := new(big.Int)
	base := big.NewInt(10000)
	for i := 0; i < ndigits; i++ {
		digit := int64(binary.BigEndian.Uint16(raw[8+i*2 : 10+i*2]))
		d.Mul(d, base)
		d.Add(d, big.NewInt(digit))
	}
	if sign == 0x4000 {
		d.Neg(d)
	}
	exp := int32(4 * (int(weight) - ndigits + 1))
	v := decimal.NewFromBigInt(d, exp)
	return Value{Kind: KindNumeric, Numeric: Numeric{Value: v, DScale: dscale}}, nil
}

// postgresEpochOffsetDays is the number of days between the Unix epoch
// (1970-01-01) and PostgreSQL's internal epoch (2000-01-01), which all
// date/timestamp wire values are relative to.
const postgresEpochOffsetDays = 10957

// postgresEpochOffsetMicros is postgresEpochOffsetDays expressed in
// microseconds, for timestamp/timestamptz.
const postgresEpochOffsetMicros = int64(postgresEpochOffsetDays) * 86400 * 1_000_000

func decodeDate(raw []byte) (Value, error) {
	if len(raw) != 4 {
		return Value{}, fmt.Errorf("decode: date payload must be 4 bytes, got %d", len(raw))
	}
	days := int32(binary.BigEndian.Uint32(raw))
	return Value{Kind: KindInt, Int: int64(days) + postgresEpochOffsetDays}, nil
}

func decodeTimeOfDay(raw []byte) (Value, error) {
	if len(raw) != 8 {
		return Value{}, fmt.Errorf("decode: time payload must be 8 bytes, got %d", len(raw))
	}
	return Value{Kind: KindInt, Int: int64(binary.BigEndian.Uint64(raw))}, nil
}

func decodeTimestamp(raw []byte) (Value, error) {
	if len(raw) != 8 {
		return Value{}, fmt.Errorf("decode: timestamp payload must be 8 bytes, got %d", len(raw))
	}
	micros := int64(binary.BigEndian.Uint64(raw))
	return Value{Kind: KindInt, Int: micros + postgresEpochOffsetMicros}, nil
}

// decodeInterval parses PostgreSQL's interval wire format: int64
// microseconds, int32 days, int32 months, in that order. Folding into a
// single microsecond count (IntervalDuration mode) happens in
// internal/shred, which owns option-dependent encoding decisions.
func decodeInterval(raw []byte) (Value, error) {
	if len(raw) != 16 {
		return Value{}, fmt.Errorf("decode: interval payload must be 16 bytes, got %d", len(raw))
	}
	micros := int64(binary.BigEndian.Uint64(raw[0:8]))
	days := int32(binary.BigEndian.Uint32(raw[8:12]))
	months := int32(binary.BigEndian.Uint32(raw[12:16]))
	return Value{
		Kind: KindInterval,
		Interval: Interval{
			Months:       months,
			Days:         days,
			Microseconds: micros,
		},
	}, nil
}
