// Package decode implements the Value Decoders (spec §4.3): functions
// that parse a single column's PostgreSQL binary wire payload into a
// tagged in-memory Value whose shape matches the column's resolved
// logical.Type. Decoders never see a connection; they operate purely on
// the bytes pgx hands back for one row, one column.
package decode

import "github.com/shopspring/decimal"

// Kind tags which fields of Value are meaningful.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindNumeric
	KindBytes
	KindArray
	KindRange
	KindComposite
	KindInterval
	KindVector
	KindSparseVector
)

// Numeric is the decoded form of a PostgreSQL `numeric`: either NaN, or
// an exact arbitrary-precision decimal. The value carries no inherent
// target precision/scale for decimal/double/float32 output — that
// rescaling happens in internal/shred against the column's configured
// Decimal representation. DScale is the wire value's own display scale,
// needed only to render --numeric-handling=string to PostgreSQL's exact
// canonical text form (trailing zeros included).
type Numeric struct {
	NaN    bool
	Value  decimal.Decimal
	DScale int
}

// Interval is the losslessly decoded {months, days, microseconds}
// triple PostgreSQL sends for an `interval` value, before the
// --interval-handling option folds or preserves it.
type Interval struct {
	Months       int32
	Days         int32
	Microseconds int64
}

// Value is a tagged variant holding the decoded payload for one cell (or
// one nested element within an array/range/composite/vector). Only the
// fields relevant to Kind are populated.
type Value struct {
	Kind Kind

	Bool    bool
	Int     int64
	Uint    uint64
	Float   float64
	Numeric Numeric
	Bytes   []byte // text, bytea, uuid, enum label, bit/varbit ASCII rendering

	// Array: Elements holds the row-major flattened element values;
	// null elements are Value{Kind: KindNull}. Dims/LowerBounds mirror
	// PostgreSQL's per-dimension header.
	Elements    []Value
	Dims        []int32
	LowerBounds []int32

	// Range
	RangeLower          *Value
	RangeUpper          *Value
	RangeLowerInclusive bool
	RangeUpperInclusive bool
	RangeEmpty          bool

	Interval Interval

	// Composite: FieldValues is positional, aligned with the column's
	// logical.Type.Fields declared order.
	FieldValues []Value

	// Vector / HalfVector: plain float32 values (HalfVector's halved
	// precision is reconstructed to float32 at decode time; whether the
	// shredder re-narrows to a 2-byte store is an encoding choice, not
	// a decoding one).
	Vector []float32

	// SparseVector: parallel Indices (1-based, matching PostgreSQL's
	// external text representation) and Values slices, one pair per
	// stored non-zero coordinate.
	SparseIndices []uint32
	SparseValues  []float32
}

func nullValue() Value { return Value{Kind: KindNull} }
