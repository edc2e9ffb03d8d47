// Package shred implements the Column Builders / Shredder (spec §4.4): it
// walks a decoded decode.Value tree alongside the column's resolved
// logical.Type and produces the native Go value shape that
// parquet.GenericWriter[map[string]any] expects — nil for SQL NULL at any
// nesting level, map[string]any for group columns (composite/range/the
// dims/dims+lb array wrapper), []any for lists whose elements may be
// null, and a concrete scalar/slice type everywhere else. The writer's own
// reflective row conversion computes the repetition/definition levels
// spec §4.4 describes; this package only decides, per logical.Kind, what
// Go value represents each decoded cell (see DESIGN.md's Shredder
// Architecture decision).
package shred

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unicode/utf8"

	"github.com/airframesio/pg2parquet/internal/catalog"
	"github.com/airframesio/pg2parquet/internal/decode"
	"github.com/airframesio/pg2parquet/internal/logical"
	"github.com/airframesio/pg2parquet/internal/options"
)

// Stats accumulates the silent-null counters spec §7 requires for NaN and
// decimal-precision-overflow values converted to null at row time, keyed
// by column name, so the export driver can log a one-line end-of-export
// summary without aborting the export over a single lossy cell.
type Stats struct {
	counts map[string]int
}

// NewStats returns an empty Stats ready to be threaded through Row.
func NewStats() *Stats {
	return &Stats{counts: make(map[string]int)}
}

func (s *Stats) note(column string) {
	if s == nil {
		return
	}
	s.counts[column]++
}

// Counts returns the per-column overflow/NaN-to-null counts observed so
// far. The returned map is owned by the caller.
func (s *Stats) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Row shreds one decoded PostgreSQL row into the map[string]any shape a
// parquet.GenericWriter[map[string]any] consumes, one entry per resolved
// column, keyed by column name (see DESIGN.md's field-ordering decision:
// parquet.Group always sorts keys alphabetically on encode, so the
// map's insertion order here is irrelevant to the emitted schema).
func Row(cols []catalog.Column, values []decode.Value, opt options.Options, stats *Stats) map[string]any {
	out := make(map[string]any, len(cols))
	for i, c := range cols {
		out[c.Name] = Value(values[i], c.Type, opt, c.Name, stats)
	}
	return out
}

// Value shreds a single decoded cell (or nested array/composite/range
// element) according to t. column names the owning top-level column, for
// Stats attribution; nested elements all attribute to their top-level
// column since spec §7's overflow counter is reported per export column,
// not per nesting level.
func Value(v decode.Value, t *logical.Type, opt options.Options, column string, stats *Stats) any {
	if v.Kind == decode.KindNull {
		return nil
	}

	switch t.Kind {
	case logical.Bool:
		return v.Bool

	case logical.Int:
		return intValue(v, t)

	case logical.Float:
		if t.FloatWidth == 32 {
			return float32(v.Float)
		}
		return v.Float

	case logical.Decimal:
		return decimalValue(v, t, opt, column, stats)

	case logical.Char:
		return padChar(string(v.Bytes), t.CharLength)

	case logical.Text:
		return string(v.Bytes)

	case logical.Bytes, logical.Uuid:
		return v.Bytes

	case logical.Date, logical.Time, logical.Timestamp, logical.TimestampTz:
		return v.Int

	case logical.IntervalDuration:
		return intervalDurationMicros(v.Interval)

	case logical.IntervalStruct:
		return map[string]any{
			"months":       v.Interval.Months,
			"days":         v.Interval.Days,
			"microseconds": v.Interval.Microseconds,
		}

	case logical.Enum:
		return enumValue(v, t)

	case logical.Array:
		return arrayValue(v, t, opt, column, stats)

	case logical.Range:
		return rangeValue(v, t, opt, column, stats)

	case logical.Composite:
		return compositeValue(v, t, opt, column, stats)

	case logical.Vector:
		return append([]float32{}, v.Vector...)

	case logical.HalfVector:
		return halfVectorValue(v, t)

	case logical.SparseVector:
		return sparseVectorValue(v)

	default:
		panic(fmt.Sprintf("shred: unhandled logical kind %s", t.Kind))
	}
}

func intValue(v decode.Value, t *logical.Type) any {
	if t.IntWidth == 64 {
		if t.IntSigned {
			return v.Int
		}
		return v.Uint
	}
	// Widths 8/16/32 all share mapper's INT32 physical representation.
	if t.IntSigned {
		return int32(v.Int)
	}
	return uint32(v.Uint)
}

// intervalDurationMicros implements spec §4.2/§4.3/§8's interval-folding
// law: months are normalized to 30 days and added to days, then the whole
// span is expressed in total microseconds alongside the original
// microsecond-of-day component.
func intervalDurationMicros(iv decode.Interval) int64 {
	const microsPerDay = int64(86400) * 1_000_000
	return int64(iv.Months)*30*microsPerDay + int64(iv.Days)*microsPerDay + iv.Microseconds
}

// enumValue implements the three --enum-handling modes (spec §4.2): the
// decoded label always arrives as the raw server-side bytes; dict-bytes
// passes it through unannotated, plain-text surfaces it as a UTF8 string,
// and int resolves it to its 1-based declared ordinal (spec §8 property
// 2). A label not found in the catalog's declared member list cannot
// happen for a value that decoded successfully against this column's
// resolved logical.Type, since the catalog resolver populated
// EnumMembers from the same pg_enum row the server encoded against.
func enumValue(v decode.Value, t *logical.Type) any {
	member := string(v.Bytes)
	switch t.EnumMode {
	case logical.EnumDictBytes:
		return v.Bytes
	case logical.EnumPlainText:
		return member
	case logical.EnumInt:
		ord, ok := t.EnumOrdinal(member)
		if !ok {
			return nil
		}
		return int32(ord)
	default:
		panic(fmt.Sprintf("shred: unsupported enum mode %d", t.EnumMode))
	}
}

// arrayValue implements the three --array-handling modes (spec §4.2/§4.4):
// flat surfaces only the row-major element list; dims/dims+lb wrap it
// alongside int32 lists carrying the PostgreSQL array's declared shape,
// which internal/decode always captures regardless of mode.
func arrayValue(v decode.Value, t *logical.Type, opt options.Options, column string, stats *Stats) any {
	elems := make([]any, len(v.Elements))
	for i, e := range v.Elements {
		elems[i] = Value(e, t.Element, opt, column, stats)
	}

	switch t.ArrayMode {
	case logical.ArrayFlat:
		return elems
	case logical.ArrayDims:
		return map[string]any{
			"data": elems,
			"dims": append([]int32{}, v.Dims...),
		}
	case logical.ArrayDimsLowerBound:
		return map[string]any{
			"data":        elems,
			"dims":        append([]int32{}, v.Dims...),
			"lower_bound": append([]int32{}, v.LowerBounds...),
		}
	default:
		panic(fmt.Sprintf("shred: unsupported array mode %d", t.ArrayMode))
	}
}

// rangeValue implements spec §4.2's range group and §3/§8's canonical-form
// invariants: an empty range carries both bounds null with both
// inclusivity flags false (decode.decodeRange already enforces this by
// never populating RangeLower/RangeUpper/the inclusive flags when the
// empty bit is set); an unbounded side is represented as a null bound
// with its inclusivity flag false, which is exactly RangeLower/Upper
// being nil here.
func rangeValue(v decode.Value, t *logical.Type, opt options.Options, column string, stats *Stats) any {
	out := map[string]any{
		"lower_inclusive": v.RangeLowerInclusive,
		"upper_inclusive": v.RangeUpperInclusive,
		"is_empty":        v.RangeEmpty,
	}
	if v.RangeLower != nil {
		out["lower"] = Value(*v.RangeLower, t.Subtype, opt, column, stats)
	} else {
		out["lower"] = nil
	}
	if v.RangeUpper != nil {
		out["upper"] = Value(*v.RangeUpper, t.Subtype, opt, column, stats)
	} else {
		out["upper"] = nil
	}
	return out
}

// compositeValue implements spec §4.2: one map entry per declared
// attribute, each shredded independently so any subset of fields may be
// null without affecting its siblings.
func compositeValue(v decode.Value, t *logical.Type, opt options.Options, column string, stats *Stats) any {
	out := make(map[string]any, len(t.Fields))
	for i, f := range t.Fields {
		out[f.Name] = Value(v.FieldValues[i], f.Type, opt, column, stats)
	}
	return out
}

// halfVectorValue implements the --float16-handling storage choice: f32
// widens every element to the 4-byte float already decoded; f16
// re-narrows to the 2-byte IEEE-754 binary16 wire form the mapper
// annotates with Parquet's FLOAT16 logical type.
func halfVectorValue(v decode.Value, t *logical.Type) any {
	switch t.HalfVecStore {
	case logical.HalfVecAsFloat32:
		return append([]float32{}, v.Vector...)
	case logical.HalfVecAsFloat16:
		out := make([]any, len(v.Vector))
		for i, f := range v.Vector {
			out[i] = float16Bytes(f)
		}
		return out
	default:
		panic(fmt.Sprintf("shred: unsupported halfvec store %d", t.HalfVecStore))
	}
}

// sparseVectorValue implements spec §4.2/§9: one {key,value} entry per
// stored non-zero coordinate, key already converted to 1-based ordinals
// by internal/decode.
func sparseVectorValue(v decode.Value) any {
	out := make([]any, len(v.SparseIndices))
	for i := range v.SparseIndices {
		out[i] = map[string]any{
			"key":   v.SparseIndices[i],
			"value": v.SparseValues[i],
		}
	}
	return out
}

// padChar implements bpchar's space-padding-to-declared-length rule (spec
// §4.2), padding by rune count rather than byte count so multi-byte UTF-8
// text pads to the correct visible length.
func padChar(s string, length int) string {
	n := utf8.RuneCountInString(s)
	if n >= length {
		return s
	}
	return s + strings.Repeat(" ", length-n)
}

// decimalValue implements spec §4.2's decimal encoding: the
// --numeric-handling alternate modes bypass the precision ladder
// entirely; the default decimal mode rescales the arbitrary-precision
// wire value to the column's declared scale and encodes the unscaled
// magnitude in the representation the precision ladder chose. NaN and
// magnitude overflow beyond the declared precision both silently null
// the cell and bump stats, per spec §3/§7 (never an error).
func decimalValue(v decode.Value, t *logical.Type, opt options.Options, column string, stats *Stats) any {
	if v.Numeric.NaN {
		stats.note(column)
		return nil
	}

	switch opt.NumericHandling {
	case options.NumericDouble:
		f, _ := v.Numeric.Value.Float64()
		return f
	case options.NumericFloat32:
		f, _ := v.Numeric.Value.Float64()
		return float32(f)
	case options.NumericString:
		// StringFixed pads/rounds to exactly DScale fractional digits,
		// matching PostgreSQL's own canonical text output (e.g. a
		// numeric(10,5) storing 1000.0001 prints "1000.00010"), which
		// decimal.String() alone does not reproduce.
		return v.Numeric.Value.StringFixed(int32(v.Numeric.DScale))
	}

	rescaled := v.Numeric.Value.Rescale(-int32(t.DecimalScale))
	coeff := rescaled.Coefficient()
	if digitCount(coeff) > t.DecimalPrecision {
		stats.note(column)
		return nil
	}

	switch t.DecimalRepr {
	case logical.DecimalInt32:
		return int32(coeff.Int64())
	case logical.DecimalInt64:
		return coeff.Int64()
	case logical.DecimalFixedLenByteArray16:
		return twosComplementBytes(coeff, 16)
	case logical.DecimalFixedLenByteArray32:
		return twosComplementBytes(coeff, 32)
	default:
		panic(fmt.Sprintf("shred: unsupported decimal repr %d", t.DecimalRepr))
	}
}

// digitCount returns the number of base-10 significant digits in v's
// magnitude, matching how PostgreSQL/Parquet define decimal "precision".
func digitCount(v *big.Int) int {
	abs := new(big.Int).Abs(v)
	if abs.Sign() == 0 {
		return 1
	}
	return len(abs.String())
}

// twosComplementBytes encodes value as a size-byte big-endian two's
// complement integer, the physical form Parquet's FIXED_LEN_BYTE_ARRAY
// DECIMAL representation requires. Grounded on
// other_examples/c81746cf_johanan-mvr__file-parquet_writer.go.go's
// bigIntToFixedBytes, which computes negative magnitudes the same way
// (2^(8*size) - |value|, 0xFF-padded on the left) since math/big offers
// no direct two's-complement encoder.
func twosComplementBytes(value *big.Int, size int) []byte {
	out := make([]byte, size)
	if value.Sign() < 0 {
		abs := new(big.Int).Abs(value)
		maxValue := new(big.Int).Lsh(big.NewInt(1), uint(8*size))
		twos := new(big.Int).Sub(maxValue, abs)
		b := twos.Bytes()
		copy(out[size-len(b):], b)
		for i := 0; i < size-len(b); i++ {
			out[i] = 0xFF
		}
		return out
	}
	value.FillBytes(out)
	return out
}

// float16Bytes converts f to its 2-byte big-endian IEEE-754 binary16
// representation, the inverse of internal/decode's float16BitsToFloat32.
// Mantissa bits that binary16 cannot hold are dropped (truncation, no
// rounding); values widened from binary16 convert back exactly.
func float16Bytes(f float32) []byte {
	bits := float32ToFloat16Bits(f)
	return []byte{byte(bits >> 8), byte(bits)}
}

func float32ToFloat16Bits(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16((bits >> 16) & 0x8000)
	exp := int32((bits>>23)&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case (bits>>23)&0xff == 0xff: // Inf/NaN
		outFrac := uint16(frac >> 13)
		if frac != 0 && outFrac == 0 {
			outFrac = 1 // preserve NaN-ness when the payload would otherwise truncate to 0
		}
		return sign | 0x7c00 | outFrac
	case exp >= 0x1f: // overflow to infinity
		return sign | 0x7c00
	case exp <= 0: // subnormal or underflow to zero
		if exp < -10 {
			return sign
		}
		frac |= 0x800000 // restore the implicit leading bit
		shift := uint(14 - exp)
		return sign | uint16(frac>>shift)
	default:
		return sign | uint16(exp)<<10 | uint16(frac>>13)
	}
}
