package mapper

import (
	"testing"

	"github.com/parquet-go/parquet-go"

	"github.com/airframesio/pg2parquet/internal/logical"
	"github.com/airframesio/pg2parquet/internal/options"
)

func TestNode_Bool(t *testing.T) {
	n := Node(logical.NewBool(), options.Default())
	if !n.Optional() {
		t.Fatal("expected bool column to be optional")
	}
	if n.Type().Kind() != parquet.Boolean {
		t.Fatalf("expected Boolean physical type, got %v", n.Type().Kind())
	}
}

func TestNode_IntWidths(t *testing.T) {
	cases := []struct {
		width  int
		signed bool
		kind   parquet.Kind
	}{
		{8, true, parquet.Int32},
		{16, true, parquet.Int32},
		{32, true, parquet.Int32},
		{64, true, parquet.Int64},
		{32, false, parquet.Int32},
	}
	for _, tc := range cases {
		n := Node(logical.NewInt(tc.width, tc.signed), options.Default())
		if n.Type().Kind() != tc.kind {
			t.Fatalf("width=%d signed=%v: got kind %v, want %v", tc.width, tc.signed, n.Type().Kind(), tc.kind)
		}
	}
}

func TestNode_DecimalPrecisionLadder(t *testing.T) {
	cases := []struct {
		precision int
		repr      logical.DecimalRepr
		kind      parquet.Kind
		length    int
	}{
		{9, logical.DecimalInt32, parquet.Int32, 0},
		{18, logical.DecimalInt64, parquet.Int64, 0},
		{38, logical.DecimalFixedLenByteArray16, parquet.FixedLenByteArray, 16},
		{76, logical.DecimalFixedLenByteArray32, parquet.FixedLenByteArray, 32},
	}
	for _, tc := range cases {
		lt := logical.NewDecimal(tc.precision, 2, tc.repr)
		n := Node(lt, options.Default())
		typ := n.Type()
		if typ.Kind() != tc.kind {
			t.Fatalf("precision=%d: got kind %v, want %v", tc.precision, typ.Kind(), tc.kind)
		}
		if tc.length != 0 && typ.Length() != tc.length {
			t.Fatalf("precision=%d: got length %d, want %d", tc.precision, typ.Length(), tc.length)
		}
		if typ.LogicalType() == nil || typ.LogicalType().Decimal == nil {
			t.Fatalf("precision=%d: expected a DECIMAL logical annotation", tc.precision)
		}
	}
}

func TestNode_DecimalAlternateModes(t *testing.T) {
	lt := logical.NewDecimal(38, 18, logical.DecimalFixedLenByteArray16)

	o := options.Default()
	o.NumericHandling = options.NumericDouble
	if Node(lt, o).Type().Kind() != parquet.Double {
		t.Fatal("expected double under --numeric-handling=double")
	}

	o = options.Default()
	o.NumericHandling = options.NumericFloat32
	if Node(lt, o).Type().Kind() != parquet.Float {
		t.Fatal("expected float under --numeric-handling=float32")
	}

	o = options.Default()
	o.NumericHandling = options.NumericString
	typ := Node(lt, o).Type()
	if typ.Kind() != parquet.ByteArray || typ.LogicalType() == nil || typ.LogicalType().UTF8 == nil {
		t.Fatal("expected UTF8 byte array under --numeric-handling=string")
	}
}

func TestNode_EnumModes(t *testing.T) {
	members := []string{"monday", "tuesday", "sunday"}

	lt := logical.NewEnum(members, logical.EnumDictBytes)
	n := Node(lt, options.Default())
	if n.Type().Kind() != parquet.ByteArray || n.Type().LogicalType() != nil {
		t.Fatal("dict-bytes enum must be a bare byte array with no UTF8 annotation")
	}

	lt = logical.NewEnum(members, logical.EnumPlainText)
	n = Node(lt, options.Default())
	if n.Type().Kind() != parquet.ByteArray || n.Type().LogicalType() == nil || n.Type().LogicalType().UTF8 == nil {
		t.Fatal("plain-text enum must carry a UTF8 annotation")
	}

	lt = logical.NewEnum(members, logical.EnumInt)
	n = Node(lt, options.Default())
	if n.Type().Kind() != parquet.Int32 {
		t.Fatal("int enum must be INT32")
	}
}

// schemaFor wraps a single column node in a one-column schema so that
// compound nodes (arrays, ranges, composites) can be inspected through
// parquet.Schema's Columns()/Lookup(), which index by leaf column path
// rather than by walking Node.Fields() directly.
func schemaFor(name string, n parquet.Node) *parquet.Schema {
	return parquet.NewSchema("t", parquet.Group{name: n})
}

func hasColumnPath(schema *parquet.Schema, path ...string) bool {
	_, ok := schema.Lookup(path...)
	return ok
}

func TestNode_ArrayModes(t *testing.T) {
	elem := logical.NewInt(32, true)

	lt := logical.NewArray(elem, logical.ArrayFlat)
	n := Node(lt, options.Default())
	schema := schemaFor("col", n)
	if !hasColumnPath(schema, "col", "list", "element") {
		t.Fatal("flat array must resolve as a single col.list.element leaf column")
	}

	lt = logical.NewArray(elem, logical.ArrayDims)
	n = Node(lt, options.Default())
	schema = schemaFor("col", n)
	if !hasColumnPath(schema, "col", "data", "list", "element") {
		t.Fatal("dims array missing col.data")
	}
	if !hasColumnPath(schema, "col", "dims", "list", "element") {
		t.Fatal("dims array missing col.dims")
	}

	lt = logical.NewArray(elem, logical.ArrayDimsLowerBound)
	n = Node(lt, options.Default())
	schema = schemaFor("col", n)
	for _, sub := range []string{"data", "dims", "lower_bound"} {
		if !hasColumnPath(schema, "col", sub, "list", "element") {
			t.Fatalf("dims+lb array missing col.%s", sub)
		}
	}
}

func TestNode_RangeGroup(t *testing.T) {
	lt := logical.NewRange(logical.NewInt(32, true))
	n := Node(lt, options.Default())
	schema := schemaFor("col", n)
	for _, sub := range []string{"lower", "upper", "lower_inclusive", "upper_inclusive", "is_empty"} {
		if !hasColumnPath(schema, "col", sub) {
			t.Fatalf("range group missing col.%s", sub)
		}
	}
}

func TestNode_CompositeFields(t *testing.T) {
	lt := logical.NewComposite([]logical.Field{
		{Name: "x", Type: logical.NewInt(32, true)},
		{Name: "y", Type: logical.NewFloat(64)},
	})
	n := Node(lt, options.Default())
	schema := schemaFor("col", n)
	if !hasColumnPath(schema, "col", "x") || !hasColumnPath(schema, "col", "y") {
		t.Fatal("composite group missing declared fields x/y")
	}
}

func TestNode_VectorFamilies(t *testing.T) {
	n := Node(logical.NewVector(5), options.Default())
	if !hasColumnPath(schemaFor("col", n), "col", "list", "element") {
		t.Fatal("vector must resolve as a single col.list.element leaf column")
	}

	n = Node(logical.NewHalfVector(5, logical.HalfVecAsFloat32), options.Default())
	if !hasColumnPath(schemaFor("col", n), "col", "list", "element") {
		t.Fatal("halfvec(f32) must resolve as a single col.list.element leaf column")
	}

	n = Node(logical.NewHalfVector(5, logical.HalfVecAsFloat16), options.Default())
	schema := schemaFor("col", n)
	leaf, ok := schema.Lookup("col", "list", "element")
	if !ok {
		t.Fatal("halfvec(f16) must resolve as a single col.list.element leaf column")
	}
	if leaf.Node.Type().LogicalType() == nil || leaf.Node.Type().LogicalType().Float16 == nil {
		t.Fatal("halfvec(f16) must carry the FLOAT16 logical annotation")
	}

	n = Node(logical.NewSparseVector(5), options.Default())
	schema = schemaFor("col", n)
	if !hasColumnPath(schema, "col", "list", "element", "key") || !hasColumnPath(schema, "col", "list", "element", "value") {
		t.Fatal("sparsevec entries must have key+value fields")
	}
}
