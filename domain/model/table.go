package model

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Table represents reconstructed tabular data with named columns.
type Table struct {
	// Name is table name derived from file path or output name.
	name string
	// Header is table header.
	header Header
	// Records is table records.
	records []Record
	// ColumnInfo contains inferred type information for each column.
	// It is computed on first use.
	columnInfo []ColumnInfo
}

// NewTable create new Table.
func NewTable(
	name string,
	header Header,
	records []Record,
) *Table {
	return &Table{
		name:    name,
		header:  header,
		records: records,
	}
}

// Name return table name.
func (t *Table) Name() string {
	return t.name
}

// Header return table header.
func (t *Table) Header() Header {
	return t.header
}

// Records return table records.
func (t *Table) Records() []Record {
	return t.records
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.records)
}

// ColumnIndex returns the position of the named column or ErrColumnNotFound.
func (t *Table) ColumnIndex(name string) (int, error) {
	idx := t.header.Index(name)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	return idx, nil
}

// Column returns every cell of the named column.
func (t *Table) Column(name string) ([]Value, error) {
	idx, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	values := make([]Value, len(t.records))
	for i, r := range t.records {
		if idx < len(r) {
			values[i] = r[idx]
		}
	}
	return values, nil
}

// ColumnInfo returns column information with inferred types
func (t *Table) ColumnInfo() []ColumnInfo {
	if t.columnInfo == nil {
		t.columnInfo = InferColumnsInfo(t.header, t.records)
	}
	return t.columnInfo
}

// Equal compare Table.
func (t *Table) Equal(t2 *Table) bool {
	if t.Name() != t2.Name() {
		return false
	}
	if !t.header.Equal(t2.header) {
		return false
	}
	if len(t.Records()) != len(t2.Records()) {
		return false
	}
	for i, record := range t.Records() {
		if !record.Equal(t2.Records()[i]) {
			return false
		}
	}
	return true
}

// TableFromFilePath creates table name from file path
func TableFromFilePath(filePath string) string {
	fileName := filepath.Base(filePath)
	// Remove compression extensions first
	for _, ext := range []string{ExtGZ, ExtBZ2, ExtXZ, ExtZSTD} {
		if strings.HasSuffix(fileName, ext) {
			fileName = strings.TrimSuffix(fileName, ext)
			break
		}
	}
	// Then remove the file type extension
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}
