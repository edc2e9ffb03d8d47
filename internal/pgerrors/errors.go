// Package pgerrors defines the typed error kinds of spec §7. Each kind
// carries enough context (column, row) for the CLI to print a
// useful diagnostic and choose an exit code, while still supporting
// errors.Is/errors.As against the underlying sentinel.
package pgerrors

import (
	"errors"
	"fmt"
)

// ConfigError signals invalid or conflicting CLI configuration.
// The CLI exits with code 2 when it sees one.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

func NewConfigError(msg string) *ConfigError { return &ConfigError{Msg: msg} }

// ConnectionError wraps a failure to establish or maintain the PostgreSQL
// connection. Its Error() message is always prefixed "connection failed:"
// per spec §6/§7.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func NewConnectionError(err error) *ConnectionError { return &ConnectionError{Err: err} }

// SchemaError signals a catalog inconsistency or an OID the Schema
// Resolver cannot classify. It names the offending column.
type SchemaError struct {
	Column string
	Msg    string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: column %q: %s: %v", e.Column, e.Msg, e.Err)
	}
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Msg)
}

func (e *SchemaError) Unwrap() error { return e.Err }

func NewSchemaError(column, msg string) *SchemaError {
	return &SchemaError{Column: column, Msg: msg}
}

// DecodeError signals malformed bytes on the wire for a particular row
// and column. It is always fatal: the export aborts on the first one.
type DecodeError struct {
	Row    int64
	Column string
	Msg    string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode error: row %d, column %q: %s: %v", e.Row, e.Column, e.Msg, e.Err)
	}
	return fmt.Sprintf("decode error: row %d, column %q: %s", e.Row, e.Column, e.Msg)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func NewDecodeError(row int64, column, msg string) *DecodeError {
	return &DecodeError{Row: row, Column: column, Msg: msg}
}

// WriteError wraps a failure from the Parquet writer (disk full, codec
// error, footer write failure).
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write error: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func NewWriteError(err error) *WriteError { return &WriteError{Err: err} }

// Sentinel errors returned by the catalog/resolver for conditions callers
// commonly want to match with errors.Is.
var (
	ErrUnknownType    = errors.New("unknown or unmappable postgresql type")
	ErrCatalogLookup  = errors.New("catalog lookup failed")
	ErrNoRowsReturned = errors.New("query returned no row description")
)
