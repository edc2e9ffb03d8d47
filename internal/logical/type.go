// Package logical defines the internal column type representation that sits
// between PostgreSQL's catalog metadata and the Parquet schema it is mapped
// to. A Type is resolved once per column at schema time and is immutable for
// the lifetime of the export.
package logical

import "fmt"

// Kind identifies which variant of Type is populated.
type Kind int

const (
	Bool Kind = iota
	Int
	Float
	Decimal
	Text
	Char
	Bytes
	Uuid
	Date
	Time
	Timestamp
	TimestampTz
	IntervalDuration
	IntervalStruct
	Enum
	Array
	Range
	Composite
	Vector
	HalfVector
	SparseVector
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Text:
		return "text"
	case Char:
		return "char"
	case Bytes:
		return "bytes"
	case Uuid:
		return "uuid"
	case Date:
		return "date"
	case Time:
		return "time"
	case Timestamp:
		return "timestamp"
	case TimestampTz:
		return "timestamptz"
	case IntervalDuration:
		return "interval_duration"
	case IntervalStruct:
		return "interval_struct"
	case Enum:
		return "enum"
	case Array:
		return "array"
	case Range:
		return "range"
	case Composite:
		return "composite"
	case Vector:
		return "vector"
	case HalfVector:
		return "halfvec"
	case SparseVector:
		return "sparsevec"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// DecimalRepr selects the physical Parquet representation chosen for a
// Decimal column by the precision ladder in spec §4.2.
type DecimalRepr int

const (
	DecimalInt32 DecimalRepr = iota
	DecimalInt64
	DecimalFixedLenByteArray16
	DecimalFixedLenByteArray32
)

// ArrayMode selects how a PostgreSQL array is emitted; see --array-handling.
type ArrayMode int

const (
	ArrayFlat ArrayMode = iota
	ArrayDims
	ArrayDimsLowerBound
)

// EnumMode selects how an enum member is emitted; see --enum-handling.
type EnumMode int

const (
	EnumDictBytes EnumMode = iota
	EnumPlainText
	EnumInt
)

// HalfVecStore selects the physical storage of a halfvec's elements.
type HalfVecStore int

const (
	HalfVecAsFloat32 HalfVecStore = iota
	HalfVecAsFloat16
)

// Field is a named, ordered member of a Composite type.
type Field struct {
	Name string
	Type *Type
}

// Type is a tagged variant describing a resolved column (or nested element)
// type. Only the fields relevant to Kind are meaningful; the zero value of
// every other field is ignored by consumers.
type Type struct {
	Kind Kind

	// Int
	IntWidth  int // 8, 16, 32, 64
	IntSigned bool

	// Float
	FloatWidth int // 32, 64

	// Decimal
	DecimalPrecision int
	DecimalScale     int
	DecimalRepr      DecimalRepr

	// Char (fixed-width, space-padded)
	CharLength int

	// Text: set when the column is actually a PostgreSQL bit/varbit,
	// whose binary wire format (a bit-length header plus packed bits) is
	// rendered to its ASCII '0'/'1' text form at decode time rather than
	// passed through as raw bytes.
	BitString bool

	// Enum
	EnumMembers []string // declared order; 1-based ordinal is index+1
	EnumMode    EnumMode

	// Array
	Element   *Type
	ArrayMode ArrayMode

	// Range
	Subtype *Type

	// Composite
	Fields []Field

	// Vector / HalfVector / SparseVector
	Dim          int // 0 means dynamic ("vector" with no declared typmod)
	HalfVecStore HalfVecStore
}

// EnumOrdinal returns the 1-based ordinal of member within the enum's
// declared order, or (0, false) if member is not a declared member.
func (t *Type) EnumOrdinal(member string) (int, bool) {
	for i, m := range t.EnumMembers {
		if m == member {
			return i + 1, true
		}
	}
	return 0, false
}

func NewBool() *Type { return &Type{Kind: Bool} }

func NewInt(width int, signed bool) *Type {
	return &Type{Kind: Int, IntWidth: width, IntSigned: signed}
}

func NewFloat(width int) *Type { return &Type{Kind: Float, FloatWidth: width} }

func NewDecimal(precision, scale int, repr DecimalRepr) *Type {
	return &Type{Kind: Decimal, DecimalPrecision: precision, DecimalScale: scale, DecimalRepr: repr}
}

func NewText() *Type { return &Type{Kind: Text} }

func NewBitString() *Type { return &Type{Kind: Text, BitString: true} }

func NewChar(length int) *Type { return &Type{Kind: Char, CharLength: length} }

func NewBytes() *Type { return &Type{Kind: Bytes} }

func NewUuid() *Type { return &Type{Kind: Uuid} }

func NewDate() *Type { return &Type{Kind: Date} }

func NewTime() *Type { return &Type{Kind: Time} }

func NewTimestamp() *Type { return &Type{Kind: Timestamp} }

func NewTimestampTz() *Type { return &Type{Kind: TimestampTz} }

func NewIntervalDuration() *Type { return &Type{Kind: IntervalDuration} }

func NewIntervalStruct() *Type { return &Type{Kind: IntervalStruct} }

func NewEnum(members []string, mode EnumMode) *Type {
	return &Type{Kind: Enum, EnumMembers: members, EnumMode: mode}
}

func NewArray(element *Type, mode ArrayMode) *Type {
	return &Type{Kind: Array, Element: element, ArrayMode: mode}
}

func NewRange(subtype *Type) *Type { return &Type{Kind: Range, Subtype: subtype} }

func NewComposite(fields []Field) *Type { return &Type{Kind: Composite, Fields: fields} }

func NewVector(dim int) *Type { return &Type{Kind: Vector, Dim: dim} }

func NewHalfVector(dim int, store HalfVecStore) *Type {
	return &Type{Kind: HalfVector, Dim: dim, HalfVecStore: store}
}

func NewSparseVector(dim int) *Type { return &Type{Kind: SparseVector, Dim: dim} }
