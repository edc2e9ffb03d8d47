// Package options implements the Options & Mode Registry (spec §4.5):
// the small set of flags that select among alternative encodings for
// decimals, enums, arrays, intervals, and half-vectors. Options are
// captured once at process start and every column builder downstream is
// parameterized by the same immutable value.
package options

import "fmt"

type NumericHandling string

const (
	NumericDecimal NumericHandling = "decimal"
	NumericDouble  NumericHandling = "double"
	NumericFloat32 NumericHandling = "float32"
	NumericString  NumericHandling = "string"
)

type EnumHandling string

const (
	EnumDictBytes EnumHandling = "dict-bytes"
	EnumPlainText EnumHandling = "plain-text"
	EnumInt       EnumHandling = "int"
)

type ArrayHandling string

const (
	ArrayFlat        ArrayHandling = "flat"
	ArrayDims        ArrayHandling = "dims"
	ArrayDimsLowerBd ArrayHandling = "dims+lb"
)

type IntervalHandling string

const (
	IntervalDuration IntervalHandling = "duration"
	IntervalStruct   IntervalHandling = "struct"
)

type Float16Handling string

const (
	Float16AsFloat32 Float16Handling = "float32"
	Float16AsFloat16 Float16Handling = "float16"
)

// Options is the immutable, process-wide set of encoding choices selected
// at start. Every column builder is constructed with the same Options.
type Options struct {
	NumericHandling  NumericHandling
	DecimalPrecision int // 1..76, default 38
	DecimalScale     int // 0..DecimalPrecision, default 18
	EnumHandling     EnumHandling
	ArrayHandling    ArrayHandling
	IntervalHandling IntervalHandling
	Float16Handling  Float16Handling
}

// Default returns the option set the CLI uses absent any flags, matching
// the defaults enumerated in spec §4.5.
func Default() Options {
	return Options{
		NumericHandling:  NumericDecimal,
		DecimalPrecision: 38,
		DecimalScale:     18,
		EnumHandling:     EnumDictBytes,
		ArrayHandling:    ArrayFlat,
		IntervalHandling: IntervalDuration,
		Float16Handling:  Float16AsFloat32,
	}
}

// Validate rejects option combinations spec §4.2 calls out as invalid
// at schema time (precision out of [1,76], scale out of [0,precision]),
// and unknown enum-like flag values.
func (o Options) Validate() error {
	switch o.NumericHandling {
	case NumericDecimal, NumericDouble, NumericFloat32, NumericString:
	default:
		return fmt.Errorf("invalid --numeric-handling: %q", o.NumericHandling)
	}
	if o.DecimalPrecision < 1 || o.DecimalPrecision > 76 {
		return fmt.Errorf("invalid --decimal-precision: %d (must be 1..76)", o.DecimalPrecision)
	}
	if o.DecimalScale < 0 || o.DecimalScale > o.DecimalPrecision {
		return fmt.Errorf("invalid --decimal-scale: %d (must be 0..%d)", o.DecimalScale, o.DecimalPrecision)
	}
	switch o.EnumHandling {
	case EnumDictBytes, EnumPlainText, EnumInt:
	default:
		return fmt.Errorf("invalid --enum-handling: %q", o.EnumHandling)
	}
	switch o.ArrayHandling {
	case ArrayFlat, ArrayDims, ArrayDimsLowerBd:
	default:
		return fmt.Errorf("invalid --array-handling: %q", o.ArrayHandling)
	}
	switch o.IntervalHandling {
	case IntervalDuration, IntervalStruct:
	default:
		return fmt.Errorf("invalid --interval-handling: %q", o.IntervalHandling)
	}
	switch o.Float16Handling {
	case Float16AsFloat32, Float16AsFloat16:
	default:
		return fmt.Errorf("invalid --float16-handling: %q", o.Float16Handling)
	}
	return nil
}

// DecimalReprForPrecision implements the precision ladder from spec §4.2.
// Returns false if precision exceeds what Parquet DECIMAL can represent.
func DecimalReprForPrecision(precision int) (repr int, ok bool) {
	switch {
	case precision <= 9:
		return 0, true // INT32
	case precision <= 18:
		return 1, true // INT64
	case precision <= 38:
		return 2, true // FIXED_LEN_BYTE_ARRAY(16)
	case precision <= 76:
		return 3, true // FIXED_LEN_BYTE_ARRAY(32)
	default:
		return 0, false
	}
}
