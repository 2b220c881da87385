package model

import (
	"fmt"
	"strconv"
	"time"
)

// TimeLayout is the layout used for every time cell written to output.
const TimeLayout = "2006-01-02 15:04:05"

// Fixed column names of timed tables.
const (
	// ColumnTime is the timestamp column.
	ColumnTime = "Time"
	// ColumnMachine is the machine identifier column.
	ColumnMachine = "Machine"
	// ColumnSession is the session number column. 0 means unassigned.
	ColumnSession = "Sess"
)

// TimedRow is one row of a time-indexed table.
type TimedRow struct {
	Time    time.Time
	Machine string
	// Values holds one cell per value column of the owning TimedTable.
	Values []Value
	// Session is the session number, 0 when unassigned.
	Session int
}

// Clone returns a deep copy of the row.
func (r TimedRow) Clone() TimedRow {
	r.Values = append([]Value(nil), r.Values...)
	return r
}

// Equal compare TimedRow.
func (r TimedRow) Equal(r2 TimedRow) bool {
	return r.Time.Equal(r2.Time) &&
		r.Machine == r2.Machine &&
		r.Session == r2.Session &&
		Record(r.Values).Equal(Record(r2.Values))
}

// TimedTable is a table keyed by time and tagged by machine.
// Event tables and metadata tables share this shape.
type TimedTable struct {
	name    string
	columns []string
	rows    []TimedRow
}

// NewTimedTable create new TimedTable.
func NewTimedTable(name string, columns []string, rows []TimedRow) *TimedTable {
	return &TimedTable{
		name:    name,
		columns: columns,
		rows:    rows,
	}
}

// Name return table name.
func (t *TimedTable) Name() string {
	return t.name
}

// Columns returns the value column names, excluding Time, Machine and Sess.
func (t *TimedTable) Columns() []string {
	return t.columns
}

// Rows return table rows.
func (t *TimedTable) Rows() []TimedRow {
	return t.rows
}

// Len returns the number of rows.
func (t *TimedTable) Len() int {
	return len(t.rows)
}

// ColumnIndex returns the position of a value column within TimedRow.Values.
func (t *TimedTable) ColumnIndex(name string) (int, error) {
	for i, c := range t.columns {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
}

// WithName returns a table sharing columns and rows under another name.
func (t *TimedTable) WithName(name string) *TimedTable {
	return &TimedTable{name: name, columns: t.columns, rows: t.rows}
}

// WithRows returns a new table with the same columns and the given rows.
func (t *TimedTable) WithRows(rows []TimedRow) *TimedTable {
	return &TimedTable{name: t.name, columns: t.columns, rows: rows}
}

// Clone returns a deep copy of the table.
func (t *TimedTable) Clone() *TimedTable {
	rows := make([]TimedRow, len(t.rows))
	for i, r := range t.rows {
		rows[i] = r.Clone()
	}
	return &TimedTable{
		name:    t.name,
		columns: append([]string(nil), t.columns...),
		rows:    rows,
	}
}

// Header returns the full output header: Time, value columns, Machine, Sess.
func (t *TimedTable) Header() Header {
	header := make(Header, 0, len(t.columns)+3)
	header = append(header, ColumnTime)
	header = append(header, t.columns...)
	return append(header, ColumnMachine, ColumnSession)
}

// ToTable flattens the timed table into a plain string table for output.
func (t *TimedTable) ToTable() *Table {
	records := make([]Record, len(t.rows))
	for i, row := range t.rows {
		record := make(Record, 0, len(t.columns)+3)
		record = append(record, NewValue(row.Time.Format(TimeLayout)))
		for j := range t.columns {
			if j < len(row.Values) {
				record = append(record, row.Values[j])
			} else {
				record = append(record, NullValue)
			}
		}
		record = append(record, NewValue(row.Machine), NewValue(strconv.Itoa(row.Session)))
		records[i] = record
	}
	return NewTable(t.name, t.Header(), records)
}
