package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/airframesio/pg2parquet/internal/logical"
)

// decodeArray parses PostgreSQL's array binary wire format: int32 ndim,
// int32 hasnull flag, uint32 element OID, then ndim pairs of (int32
// dimension length, int32 lower bound), followed by the flattened
// row-major elements, each prefixed by an int32 length (-1 = NULL).
// ndim == 0 denotes an empty array with no dimension entries and no
// elements, matching spec §4.3/§4.4 and the zero-dims convention
// PostgreSQL uses for `'{}'::int[]`.
func decodeArray(raw []byte, t *logical.Type) (Value, error) {
	r := &cursor{buf: raw}

	ndim, err := r.int32()
	if err != nil {
		return Value{}, fmt.Errorf("decode: array ndim: %w", err)
	}
	if _, err := r.int32(); err != nil { // hasnull flag; not needed, null-ness is per-element length
		return Value{}, fmt.Errorf("decode: array hasnull: %w", err)
	}
	if _, err := r.uint32(); err != nil { // element OID; the element's logical.Type is already known
		return Value{}, fmt.Errorf("decode: array element oid: %w", err)
	}

	if ndim == 0 {
		return Value{Kind: KindArray, Dims: []int32{}, LowerBounds: []int32{}, Elements: []Value{}}, nil
	}

	dims := make([]int32, ndim)
	lowerBounds := make([]int32, ndim)
	count := int64(1)
	for i := int32(0); i < ndim; i++ {
		dimLen, err := r.int32()
		if err != nil {
			return Value{}, fmt.Errorf("decode: array dim %d length: %w", i, err)
		}
		lb, err := r.int32()
		if err != nil {
			return Value{}, fmt.Errorf("decode: array dim %d lower bound: %w", i, err)
		}
		dims[i] = dimLen
		lowerBounds[i] = lb
		count *= int64(dimLen)
	}

	elements := make([]Value, 0, count)
	for i := int64(0); i < count; i++ {
		elemRaw, err := r.lengthPrefixed()
		if err != nil {
			return Value{}, fmt.Errorf("decode: array element %d: %w", i, err)
		}
		ev, err := Decode(elemRaw, t.Element)
		if err != nil {
			return Value{}, fmt.Errorf("decode: array element %d: %w", i, err)
		}
		elements = append(elements, ev)
	}

	return Value{Kind: KindArray, Dims: dims, LowerBounds: lowerBounds, Elements: elements}, nil
}

// Range flag bits, from PostgreSQL's rangetypes.h.
const (
	rangeEmpty        = 0x01
	rangeLowerInc     = 0x02
	rangeUpperInc     = 0x04
	rangeLowerInf     = 0x08
	rangeUpperInf     = 0x10
	rangeLowerNull    = 0x20
	rangeUpperNull    = 0x40
	rangeContainEmpty = 0x80
)

// decodeRange parses PostgreSQL's range binary wire format: a single
// flags byte, then (unless empty/infinite/null) an int32-length-prefixed
// lower bound payload, then likewise the upper bound.
func decodeRange(raw []byte, t *logical.Type) (Value, error) {
	r := &cursor{buf: raw}
	flags, err := r.byte()
	if err != nil {
		return Value{}, fmt.Errorf("decode: range flags: %w", err)
	}

	v := Value{Kind: KindRange}
	if flags&rangeEmpty != 0 {
		v.RangeEmpty = true
		return v, nil
	}

	if flags&rangeLowerInf == 0 && flags&rangeLowerNull == 0 {
		lowerRaw, err := r.lengthPrefixed()
		if err != nil {
			return Value{}, fmt.Errorf("decode: range lower bound: %w", err)
		}
		lv, err := Decode(lowerRaw, t.Subtype)
		if err != nil {
			return Value{}, fmt.Errorf("decode: range lower bound: %w", err)
		}
		v.RangeLower = &lv
	}
	if flags&rangeLowerInc != 0 {
		v.RangeLowerInclusive = true
	}

	if flags&rangeUpperInf == 0 && flags&rangeUpperNull == 0 {
		upperRaw, err := r.lengthPrefixed()
		if err != nil {
			return Value{}, fmt.Errorf("decode: range upper bound: %w", err)
		}
		uv, err := Decode(upperRaw, t.Subtype)
		if err != nil {
			return Value{}, fmt.Errorf("decode: range upper bound: %w", err)
		}
		v.RangeUpper = &uv
	}
	if flags&rangeUpperInc != 0 {
		v.RangeUpperInclusive = true
	}

	return v, nil
}

// decodeComposite parses PostgreSQL's record binary wire format: int32
// field count, then per field a uint32 type OID (ignored; the field's
// logical.Type is already known from the catalog in declared order) and
// an int32-length-prefixed payload.
func decodeComposite(raw []byte, t *logical.Type) (Value, error) {
	r := &cursor{buf: raw}
	count, err := r.int32()
	if err != nil {
		return Value{}, fmt.Errorf("decode: composite field count: %w", err)
	}
	if int(count) != len(t.Fields) {
		return Value{}, fmt.Errorf("decode: composite field count mismatch: wire=%d catalog=%d", count, len(t.Fields))
	}

	values := make([]Value, count)
	for i := int32(0); i < count; i++ {
		if _, err := r.uint32(); err != nil {
			return Value{}, fmt.Errorf("decode: composite field %d oid: %w", i, err)
		}
		fieldRaw, err := r.lengthPrefixed()
		if err != nil {
			return Value{}, fmt.Errorf("decode: composite field %d: %w", i, err)
		}
		fv, err := Decode(fieldRaw, t.Fields[i].Type)
		if err != nil {
			return Value{}, fmt.Errorf("decode: composite field %q: %w", t.Fields[i].Name, err)
		}
		values[i] = fv
	}

	return Value{Kind: KindComposite, FieldValues: values}, nil
}

// cursor is a minimal forward-only byte reader over a wire payload,
// shared by the array/range/composite decoders, all of which walk a
// sequence of fixed-width headers and length-prefixed sub-payloads.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) byte() (byte, error) {
	if c.pos+1 > len(c.buf) {
		return 0, fmt.Errorf("unexpected end of buffer reading 1 byte at offset %d", c.pos)
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) int32() (int32, error) {
	u, err := c.uint32()
	return int32(u), err
}

func (c *cursor) uint32() (uint32, error) {
	if c.pos+4 > len(c.buf) {
		return 0, fmt.Errorf("unexpected end of buffer reading 4 bytes at offset %d", c.pos)
	}
	u := binary.BigEndian.Uint32(c.buf[c.pos : c.pos+4])
	c.pos += 4
	return u, nil
}

// lengthPrefixed reads an int32 length followed by that many bytes; a
// length of -1 denotes SQL NULL and yields a nil slice (distinct from a
// present zero-length payload, which yields a non-nil empty slice).
func (c *cursor) lengthPrefixed() ([]byte, error) {
	n, err := c.int32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	if c.pos+int(n) > len(c.buf) {
		return nil, fmt.Errorf("unexpected end of buffer reading %d-byte payload at offset %d", n, c.pos)
	}
	b := c.buf[c.pos : c.pos+int(n)]
	c.pos += int(n)
	return b, nil
}
