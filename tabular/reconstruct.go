// Package tabular rebuilds named tables from decoded archive rows and
// provides the time-keyed operations used to merge them: parsing, outer
// join on time, concatenation, sorting and de-duplication.
package tabular

import (
	"errors"
	"fmt"

	"github.com/SNUH-BMI/CDM/domain/model"
)

var (
	// ErrNotRows is returned when a document does not hold rows.
	ErrNotRows = errors.New("document does not hold rows")
	// ErrShape is returned when the header does not fit the data rows.
	ErrShape = errors.New("table shape mismatch")
)

// SyntheticColumn names the column appended when the header is one short.
const SyntheticColumn = "None"

// Layout locates the header and data rows of a decoded table.
type Layout struct {
	// SkipRows is the index of the first data row.
	SkipRows int
	// HeaderRow is the index of the row holding column names.
	HeaderRow int
	// DropLeadingColumn removes the index-like first column.
	DropLeadingColumn bool
}

// Layouts of the device tables.
var (
	// EventLayout is the layout of the user event log.
	EventLayout = Layout{SkipRows: 27, HeaderRow: 26, DropLeadingColumn: true}
	// MetadataLayout is the layout of the fluid and pressure logs.
	MetadataLayout = Layout{SkipRows: 7, HeaderRow: 6, DropLeadingColumn: true}
)

// Reconstruct builds a table from a rows document.
// The header row names the columns and data begins at SkipRows. When the
// widest data row has exactly one more field than the header, a column named
// "None" is appended; any other mismatch is ErrShape. Short rows are padded
// with nulls.
func Reconstruct(name string, doc model.Document, layout Layout) (*model.Table, error) {
	rows, ok := doc.Rows()
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %s", ErrNotRows, name, doc.Kind())
	}
	if layout.HeaderRow < 0 || layout.HeaderRow >= len(rows) {
		return nil, fmt.Errorf("%w: %s has %d rows, header expected at row %d", ErrShape, name, len(rows), layout.HeaderRow)
	}

	header := append([]string(nil), rows[layout.HeaderRow]...)
	var data [][]string
	if layout.SkipRows < len(rows) {
		data = rows[max(layout.SkipRows, 0):]
	}

	width := len(header)
	if len(data) > 0 {
		width = 0
		for _, r := range data {
			width = max(width, len(r))
		}
	}
	switch width {
	case len(header):
	case len(header) + 1:
		header = append(header, SyntheticColumn)
	default:
		return nil, fmt.Errorf("%w: %s has %d column names for %d fields", ErrShape, name, len(header), width)
	}

	start := 0
	if layout.DropLeadingColumn && len(header) > 0 {
		start = 1
	}
	header = header[start:]
	if err := model.ValidateColumnNames(header); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	records := make([]model.Record, len(data))
	for i, r := range data {
		record := make(model.Record, len(header))
		for j := range header {
			if k := j + start; k < len(r) {
				record[j] = model.NewValue(r[k])
			}
		}
		records[i] = record
	}

	return model.NewTable(name, model.NewHeader(header), records), nil
}
