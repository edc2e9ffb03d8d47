// Package catalog implements the Schema Resolver (spec §4.1): resolving
// a query's output columns, by OID and typmod, into the internal
// logical.Type model the mapper and decoder operate on. Resolution
// walks pg_type/pg_enum/pg_range/pg_attribute, unwraps domains, and
// recurses into arrays/ranges/composites, memoizing per-OID catalog
// facts for the lifetime of one export.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/airframesio/pg2parquet/internal/logical"
	"github.com/airframesio/pg2parquet/internal/options"
	"github.com/airframesio/pg2parquet/internal/pgerrors"
)

// Column is one resolved output column: its declared name and its
// logical.Type, ready for internal/mapper and internal/decode.
type Column struct {
	Name string
	Type *logical.Type
}

// Resolver resolves a query's output schema against a live PostgreSQL
// catalog, caching per-OID facts (pg_type row, enum members, composite
// field lists) across the calls made while resolving one query, since
// the same type (e.g. a domain used by five columns) is commonly seen
// more than once.
type Resolver struct {
	conn *pgx.Conn
	opt  options.Options

	typeCache      map[uint32]*typeFacts
	enumCache      map[uint32][]string
	rangeSubCache  map[uint32]uint32
	compositeCache map[uint32][]logical.Field
}

// NewResolver builds a Resolver bound to conn. opt selects the
// alternate encodings (decimal precision ladder fallback, enum/array
// mode, interval mode, float16 storage) baked into each resolved
// logical.Type.
func NewResolver(conn *pgx.Conn, opt options.Options) *Resolver {
	return &Resolver{
		conn:           conn,
		opt:            opt,
		typeCache:      make(map[uint32]*typeFacts),
		enumCache:      make(map[uint32][]string),
		rangeSubCache:  make(map[uint32]uint32),
		compositeCache: make(map[uint32][]logical.Field),
	}
}

// typeFacts is the raw pg_type row needed to classify an OID, cached
// once per OID for the life of the Resolver.
type typeFacts struct {
	name       string
	typtype    byte // 'b' base, 'd' domain, 'e' enum, 'r' range, 'c' composite, 'p' pseudo
	category   byte // 'A' marks array types
	elemOID    uint32
	baseOID    uint32
	baseTypmod int32
	relOID     uint32
}

// ResolveQuery describes sql via an unnamed prepared statement (no row
// fetch, no server-side cursor) and resolves every output column's
// logical.Type. This is what powers both a real export and --dry-run,
// since describing a statement touches the catalog but never executes
// it.
func (r *Resolver) ResolveQuery(ctx context.Context, sql string) ([]Column, error) {
	desc, err := r.conn.Prepare(ctx, "", sql)
	if err != nil {
		return nil, pgerrors.NewConnectionError(fmt.Errorf("describe query: %w", err))
	}
	if len(desc.Fields) == 0 {
		return nil, pgerrors.ErrNoRowsReturned
	}

	cols := make([]Column, len(desc.Fields))
	for i, f := range desc.Fields {
		t, err := r.resolveType(ctx, f.DataTypeOID, f.TypeModifier)
		if err != nil {
			se := pgerrors.NewSchemaError(f.Name, "cannot resolve column type")
			se.Err = err
			return nil, se
		}
		cols[i] = Column{Name: f.Name, Type: t}
	}
	return cols, nil
}

// resolveType classifies oid (with the given atttypmod context) into a
// logical.Type, recursing for arrays/ranges/composites and unwrapping
// domains. Unknown/unmappable base types fall back to Text, per spec
// §9 ("unknown OIDs fall back to Text" rather than aborting the whole
// export over one exotic column).
func (r *Resolver) resolveType(ctx context.Context, oid uint32, typmod int32) (*logical.Type, error) {
	facts, err := r.typeFacts(ctx, oid)
	if err != nil {
		return nil, fmt.Errorf("oid %d: %w", oid, err)
	}

	switch {
	case facts.category == 'A' && facts.elemOID != 0:
		elem, err := r.resolveType(ctx, facts.elemOID, typmod)
		if err != nil {
			return nil, fmt.Errorf("array element: %w", err)
		}
		return logical.NewArray(elem, arrayModeFromOptions(r.opt.ArrayHandling)), nil

	case facts.typtype == 'e':
		members, err := r.enumMembers(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("enum %q: %w", facts.name, err)
		}
		return logical.NewEnum(members, enumModeFromOptions(r.opt.EnumHandling)), nil

	case facts.typtype == 'r':
		subOID, err := r.rangeSubtype(ctx, oid)
		if err != nil {
			return nil, fmt.Errorf("range %q: %w", facts.name, err)
		}
		sub, err := r.resolveType(ctx, subOID, -1)
		if err != nil {
			return nil, fmt.Errorf("range %q subtype: %w", facts.name, err)
		}
		return logical.NewRange(sub), nil

	case facts.typtype == 'c' && facts.relOID != 0:
		fields, err := r.compositeFields(ctx, facts.relOID)
		if err != nil {
			return nil, fmt.Errorf("composite %q: %w", facts.name, err)
		}
		return logical.NewComposite(fields), nil

	case facts.typtype == 'd':
		return r.resolveType(ctx, facts.baseOID, facts.baseTypmod)

	default:
		if t, ok := scalarType(facts.name, typmod, r.opt); ok {
			return t, nil
		}
		return logical.NewText(), nil
	}
}

func (r *Resolver) typeFacts(ctx context.Context, oid uint32) (*typeFacts, error) {
	if f, ok := r.typeCache[oid]; ok {
		return f, nil
	}
	const q = `
		SELECT typname, typtype::text, typcategory::text, typelem, typbasetype, typtypmod, typrelid
		FROM pg_catalog.pg_type
		WHERE oid = $1
	`
	var typtype, category string
	var f typeFacts
	err := r.conn.QueryRow(ctx, q, oid).Scan(
		&f.name, &typtype, &category, &f.elemOID, &f.baseOID, &f.baseTypmod, &f.relOID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pgerrors.ErrCatalogLookup, err)
	}
	f.typtype = typtype[0]
	f.category = category[0]
	r.typeCache[oid] = &f
	return &f, nil
}

func (r *Resolver) enumMembers(ctx context.Context, oid uint32) ([]string, error) {
	if m, ok := r.enumCache[oid]; ok {
		return m, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT enumlabel FROM pg_catalog.pg_enum
		WHERE enumtypid = $1
		ORDER BY enumsortorder
	`, oid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		members = append(members, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.enumCache[oid] = members
	return members, nil
}

func (r *Resolver) rangeSubtype(ctx context.Context, oid uint32) (uint32, error) {
	if sub, ok := r.rangeSubCache[oid]; ok {
		return sub, nil
	}
	var sub uint32
	err := r.conn.QueryRow(ctx, `SELECT rngsubtype FROM pg_catalog.pg_range WHERE rngtypid = $1`, oid).Scan(&sub)
	if err != nil {
		return 0, err
	}
	r.rangeSubCache[oid] = sub
	return sub, nil
}

func (r *Resolver) compositeFields(ctx context.Context, relOID uint32) ([]logical.Field, error) {
	if f, ok := r.compositeCache[relOID]; ok {
		return f, nil
	}
	rows, err := r.conn.Query(ctx, `
		SELECT attname, atttypid, atttypmod
		FROM pg_catalog.pg_attribute
		WHERE attrelid = $1 AND attnum > 0 AND NOT attisdropped
		ORDER BY attnum
	`, relOID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []logical.Field
	for rows.Next() {
		var name string
		var typOID uint32
		var typmod int32
		if err := rows.Scan(&name, &typOID, &typmod); err != nil {
			return nil, err
		}
		ft, err := r.resolveType(ctx, typOID, typmod)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, logical.Field{Name: name, Type: ft})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.compositeCache[relOID] = fields
	return fields, nil
}

func arrayModeFromOptions(h options.ArrayHandling) logical.ArrayMode {
	switch h {
	case options.ArrayDims:
		return logical.ArrayDims
	case options.ArrayDimsLowerBd:
		return logical.ArrayDimsLowerBound
	default:
		return logical.ArrayFlat
	}
}

func enumModeFromOptions(h options.EnumHandling) logical.EnumMode {
	switch h {
	case options.EnumPlainText:
		return logical.EnumPlainText
	case options.EnumInt:
		return logical.EnumInt
	default:
		return logical.EnumDictBytes
	}
}
