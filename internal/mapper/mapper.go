// Package mapper implements the Type Mapper (spec §4.2): the pure
// function that turns a resolved logical.Type plus the active
// options.Options into a parquet.Node schema fragment. It never touches
// a connection or a row; it is run once per column at schema time.
package mapper

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/airframesio/pg2parquet/internal/logical"
	"github.com/airframesio/pg2parquet/internal/options"
)

// Node maps a single column's logical.Type into a parquet.Node, honoring
// the active Options for decimals, enums, arrays, intervals and
// half-vectors. The returned node is always wrapped in parquet.Optional:
// every PostgreSQL column is nullable independent of its NOT NULL
// constraint, because constraints are not part of the exported schema's
// contract (spec §4.1/§4.2 describe only the value-level type mapping).
func Node(t *logical.Type, opt options.Options) parquet.Node {
	return parquet.Optional(required(t, opt))
}

// required builds the node without the outer Optional wrapper, used both
// by Node (top-level columns) and recursively for array elements,
// composite fields, and range bounds, each of which applies its own
// nullability wrapper at the call site.
func required(t *logical.Type, opt options.Options) parquet.Node {
	switch t.Kind {
	case logical.Bool:
		return parquet.Leaf(parquet.BooleanType)

	case logical.Int:
		return intNode(t)

	case logical.Float:
		if t.FloatWidth == 32 {
			return parquet.Leaf(parquet.FloatType)
		}
		return parquet.Leaf(parquet.DoubleType)

	case logical.Decimal:
		return decimalNode(t, opt)

	case logical.Text:
		return parquet.String()

	case logical.Char:
		return parquet.String()

	case logical.Bytes:
		return parquet.Leaf(parquet.ByteArrayType)

	case logical.Uuid:
		return parquet.UUID()

	case logical.Date:
		return parquet.Date()

	case logical.Time:
		return parquet.Time(parquet.Microsecond)

	case logical.Timestamp:
		return parquet.Timestamp(parquet.Microsecond)

	case logical.TimestampTz:
		return parquet.Timestamp(parquet.Microsecond)

	case logical.IntervalDuration:
		return parquet.Leaf(parquet.Int64Type)

	case logical.IntervalStruct:
		return intervalStructNode()

	case logical.Enum:
		return enumNode(t)

	case logical.Array:
		return arrayNode(t, opt)

	case logical.Range:
		return rangeNode(t, opt)

	case logical.Composite:
		return compositeNode(t, opt)

	case logical.Vector:
		return parquet.List(parquet.Leaf(parquet.FloatType))

	case logical.HalfVector:
		return halfVectorNode(t)

	case logical.SparseVector:
		return sparseVectorNode()

	default:
		panic(fmt.Sprintf("mapper: unhandled logical kind %s", t.Kind))
	}
}

func intNode(t *logical.Type) parquet.Node {
	var width int
	switch t.IntWidth {
	case 8, 16, 32:
		width = 32
	case 64:
		width = 64
	default:
		panic(fmt.Sprintf("mapper: unsupported int width %d", t.IntWidth))
	}
	if t.IntSigned {
		return parquet.Int(width)
	}
	return parquet.Uint(width)
}

// decimalNode implements the precision ladder and the --numeric-handling
// alternate modes from spec §4.2.
func decimalNode(t *logical.Type, opt options.Options) parquet.Node {
	switch opt.NumericHandling {
	case options.NumericDouble:
		return parquet.Leaf(parquet.DoubleType)
	case options.NumericFloat32:
		return parquet.Leaf(parquet.FloatType)
	case options.NumericString:
		return parquet.String()
	}

	switch t.DecimalRepr {
	case logical.DecimalInt32:
		return parquet.Decimal(t.DecimalScale, t.DecimalPrecision, parquet.Int32Type)
	case logical.DecimalInt64:
		return parquet.Decimal(t.DecimalScale, t.DecimalPrecision, parquet.Int64Type)
	case logical.DecimalFixedLenByteArray16:
		return parquet.Decimal(t.DecimalScale, t.DecimalPrecision, parquet.FixedLenByteArrayType(16))
	case logical.DecimalFixedLenByteArray32:
		return parquet.Decimal(t.DecimalScale, t.DecimalPrecision, parquet.FixedLenByteArrayType(32))
	default:
		panic(fmt.Sprintf("mapper: unsupported decimal repr %d", t.DecimalRepr))
	}
}

func intervalStructNode() parquet.Node {
	return parquet.Group{
		"months":       parquet.Leaf(parquet.Int32Type),
		"days":         parquet.Leaf(parquet.Int32Type),
		"microseconds": parquet.Leaf(parquet.Int64Type),
	}
}

// enumNode implements the three --enum-handling modes from spec §4.2.
// dict-bytes and plain-text are both BYTE_ARRAY; only plain-text carries
// the UTF8 annotation, since dict-bytes is specified as "raw bytes".
func enumNode(t *logical.Type) parquet.Node {
	switch t.EnumMode {
	case logical.EnumDictBytes:
		return parquet.Leaf(parquet.ByteArrayType)
	case logical.EnumPlainText:
		return parquet.String()
	case logical.EnumInt:
		return parquet.Int(32)
	default:
		panic(fmt.Sprintf("mapper: unsupported enum mode %d", t.EnumMode))
	}
}

// arrayNode implements the three --array-handling modes from spec §4.2.
// flat emits a bare repeated list; dims/dims+lb wrap the list alongside
// sibling int32 list columns carrying the PostgreSQL array's shape.
func arrayNode(t *logical.Type, opt options.Options) parquet.Node {
	elem := parquet.Optional(required(t.Element, opt))
	data := parquet.List(elem)

	switch t.ArrayMode {
	case logical.ArrayFlat:
		return data
	case logical.ArrayDims:
		return parquet.Group{
			"data": data,
			"dims": parquet.List(parquet.Leaf(parquet.Int32Type)),
		}
	case logical.ArrayDimsLowerBound:
		return parquet.Group{
			"data":        data,
			"dims":        parquet.List(parquet.Leaf(parquet.Int32Type)),
			"lower_bound": parquet.List(parquet.Leaf(parquet.Int32Type)),
		}
	default:
		panic(fmt.Sprintf("mapper: unsupported array mode %d", t.ArrayMode))
	}
}

// rangeNode implements spec §4.2's range group: lower/upper share the
// subtype's node but are always optional, independent of whether the
// subtype itself is normally nullable, since an unbounded or empty range
// side is represented as a null bound.
func rangeNode(t *logical.Type, opt options.Options) parquet.Node {
	bound := parquet.Optional(required(t.Subtype, opt))
	return parquet.Group{
		"lower":           bound,
		"upper":           bound,
		"lower_inclusive": parquet.Leaf(parquet.BooleanType),
		"upper_inclusive": parquet.Leaf(parquet.BooleanType),
		"is_empty":        parquet.Leaf(parquet.BooleanType),
	}
}

// compositeNode implements spec §4.2: one field per attribute, in
// declared order for the logical model, but parquet.Group always sorts
// its keys alphabetically on encode (see DESIGN.md's field-ordering
// decision) so declared order only matters for row shredding, not the
// emitted schema tree.
func compositeNode(t *logical.Type, opt options.Options) parquet.Node {
	fields := make(parquet.Group, len(t.Fields))
	for _, f := range t.Fields {
		fields[f.Name] = parquet.Optional(required(f.Type, opt))
	}
	return fields
}

// halfVectorNode implements the f16/f32 storage choice from --float16-handling.
func halfVectorNode(t *logical.Type) parquet.Node {
	switch t.HalfVecStore {
	case logical.HalfVecAsFloat32:
		return parquet.List(parquet.Leaf(parquet.FloatType))
	case logical.HalfVecAsFloat16:
		return parquet.List(parquet.Optional(parquet.Leaf(newFloat16Type())))
	default:
		panic(fmt.Sprintf("mapper: unsupported halfvec store %d", t.HalfVecStore))
	}
}

// sparseVectorNode implements spec §4.2/§9: one {key,value} struct per
// stored non-zero coordinate rather than a dense fixed-width list.
func sparseVectorNode() parquet.Node {
	entry := parquet.Group{
		"key":   parquet.Uint(32),
		"value": parquet.Leaf(parquet.FloatType),
	}
	return parquet.List(entry)
}

// float16Type annotates a 2-byte fixed-length physical type with
// Parquet's FLOAT16 logical type. parquet-go does not ship a
// constructor for this annotation (only DECIMAL, UUID, JSON, and a
// handful of others get helpers in type_decimal.go-style wrappers), so
// this follows the exact embedding pattern the library itself uses for
// Decimal: embed a concrete underlying Type (here, the 2-byte fixed-len
// physical type Float16 is always stored as) and override only
// LogicalType() and String().
type float16Type struct {
	parquet.Type
}

func newFloat16Type() float16Type {
	return float16Type{Type: parquet.FixedLenByteArrayType(2)}
}

func (t float16Type) String() string {
	return "FLOAT16"
}

func (t float16Type) LogicalType() *format.LogicalType {
	return &format.LogicalType{Float16: &format.Float16Type{}}
}
