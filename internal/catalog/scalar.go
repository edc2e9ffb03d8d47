package catalog

import (
	"github.com/airframesio/pg2parquet/internal/logical"
	"github.com/airframesio/pg2parquet/internal/options"
)

// scalarType builds the logical.Type for a base (typtype = 'b') PostgreSQL
// type identified by name, given its atttypmod. ok is false for a base
// type name this tool does not recognize, in which case the caller's
// fallback (spec §9: unknown types default to Text) applies.
func scalarType(name string, typmod int32, opt options.Options) (*logical.Type, bool) {
	switch name {
	case "bool":
		return logical.NewBool(), true
	case "int2":
		return logical.NewInt(16, true), true
	case "int4":
		return logical.NewInt(32, true), true
	case "int8":
		return logical.NewInt(64, true), true
	case "oid", "xid", "cid", "regproc", "regclass", "regtype":
		return logical.NewInt(32, false), true
	case "char": // the single-byte quoted `"char"` type, distinct from bpchar
		return logical.NewInt(8, false), true
	case "float4":
		return logical.NewFloat(32), true
	case "float8":
		return logical.NewFloat(64), true
	case "numeric":
		// Precision/scale always come from --decimal-precision/--decimal-scale,
		// never from the column's declared typmod: spec §4.2 requires values
		// to be rescaled to the option scale, and §8 Property 3 requires the
		// read-back scale to equal it. Options.Validate already constrains
		// DecimalPrecision to [1,76], so the repr ladder always resolves.
		precision, scale := opt.DecimalPrecision, opt.DecimalScale
		repr, _ := options.DecimalReprForPrecision(precision)
		return logical.NewDecimal(precision, scale, logical.DecimalRepr(repr)), true
	case "text", "varchar", "name", "json", "jsonb", "citext", "xml":
		return logical.NewText(), true
	case "bpchar":
		length, ok := decodeLengthTypmod(typmod)
		if !ok {
			return logical.NewText(), true
		}
		return logical.NewChar(length), true
	case "bytea":
		return logical.NewBytes(), true
	case "bit", "varbit":
		return logical.NewBitString(), true
	case "uuid":
		return logical.NewUuid(), true
	case "date":
		return logical.NewDate(), true
	case "time":
		return logical.NewTime(), true
	// timetz is deliberately not mapped: its binary wire payload is 12
	// bytes (8-byte microseconds-of-day + 4-byte zone offset) and
	// decodeTimeOfDay only handles the 8-byte time form, so it falls
	// back to Text per the unknown-type default.
	case "timestamp":
		return logical.NewTimestamp(), true
	case "timestamptz":
		return logical.NewTimestampTz(), true
	case "interval":
		if opt.IntervalHandling == options.IntervalStruct {
			return logical.NewIntervalStruct(), true
		}
		return logical.NewIntervalDuration(), true
	case "vector":
		return logical.NewVector(decodeVectorTypmod(typmod)), true
	case "halfvec":
		store := logical.HalfVecAsFloat32
		if opt.Float16Handling == options.Float16AsFloat16 {
			store = logical.HalfVecAsFloat16
		}
		return logical.NewHalfVector(decodeVectorTypmod(typmod), store), true
	case "sparsevec":
		return logical.NewSparseVector(decodeVectorTypmod(typmod)), true
	default:
		return nil, false
	}
}
