// Package model provides the domain model shared by the decoding, table
// reconstruction, session segmentation and output packages.
package model

import (
	"fmt"
	"strings"
)

// Header is table header.
type Header []string

// NewHeader create new Header.
func NewHeader(h []string) Header {
	return Header(h)
}

// Equal compare Header.
func (h Header) Equal(h2 Header) bool {
	if len(h) != len(h2) {
		return false
	}
	for i, v := range h {
		if v != h2[i] {
			return false
		}
	}
	return true
}

// Index returns the position of the named column, or -1.
func (h Header) Index(name string) int {
	for i, v := range h {
		if v == name {
			return i
		}
	}
	return -1
}

// Value is a nullable table cell.
// The zero value is null.
type Value struct {
	str   string
	valid bool
}

// NullValue is the null cell.
var NullValue = Value{}

// NewValue creates a non-null cell.
func NewValue(s string) Value {
	return Value{str: s, valid: true}
}

// String returns the cell content; null cells return an empty string.
func (v Value) String() string {
	return v.str
}

// IsNull reports whether the cell is null.
func (v Value) IsNull() bool {
	return !v.valid
}

// IsBlank reports whether the cell is null or contains only whitespace.
func (v Value) IsBlank() bool {
	return !v.valid || strings.TrimSpace(v.str) == ""
}

// Equal compare Value.
func (v Value) Equal(v2 Value) bool {
	return v.valid == v2.valid && v.str == v2.str
}

// Record is one table row.
type Record []Value

// NewRecord create new Record where every field is non-null.
func NewRecord(r []string) Record {
	record := make(Record, len(r))
	for i, s := range r {
		record[i] = NewValue(s)
	}
	return record
}

// Equal compare Record.
func (r Record) Equal(r2 Record) bool {
	if len(r) != len(r2) {
		return false
	}
	for i, v := range r {
		if !v.Equal(r2[i]) {
			return false
		}
	}
	return true
}

// Strings returns the record as plain strings; nulls become empty strings.
func (r Record) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.String()
	}
	return out
}

// ValidateColumnNames checks for duplicate column names and returns error if found.
// Column name comparison is case-sensitive; surrounding whitespace is ignored.
func ValidateColumnNames(columns []string) error {
	columnsSeen := make(map[string]bool, len(columns))
	for _, col := range columns {
		trimmedCol := strings.TrimSpace(col)
		if columnsSeen[trimmedCol] {
			return fmt.Errorf("%w: %s", ErrDuplicateColumnName, col)
		}
		columnsSeen[trimmedCol] = true
	}
	return nil
}

// ColumnType represents the column type inferred from cell values.
type ColumnType int

const (
	// ColumnTypeText represents TEXT column type
	ColumnTypeText ColumnType = iota
	// ColumnTypeInteger represents INTEGER column type
	ColumnTypeInteger
	// ColumnTypeReal represents REAL column type
	ColumnTypeReal
	// ColumnTypeDatetime represents datetime stored as TEXT in ISO8601 format
	ColumnTypeDatetime
)

const (
	sqlTypeText    = "TEXT"
	sqlTypeInteger = "INTEGER"
	sqlTypeReal    = "REAL"
)

// String returns the SQL column type string
func (ct ColumnType) String() string {
	switch ct {
	case ColumnTypeText:
		return sqlTypeText
	case ColumnTypeInteger:
		return sqlTypeInteger
	case ColumnTypeReal:
		return sqlTypeReal
	case ColumnTypeDatetime:
		return sqlTypeText // SQLite stores datetime as TEXT in ISO8601 format
	default:
		return sqlTypeText
	}
}

// ColumnInfo represents column information with name and inferred type
type ColumnInfo struct {
	Name string
	Type ColumnType
}
