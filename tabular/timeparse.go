package tabular

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// ErrTimeParse is returned when a time cell cannot be parsed.
var ErrTimeParse = errors.New("time parse failed")

// fallbackLayouts are tried when dateparse does not understand a value.
var fallbackLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02-Jan-2006 15:04:05",
}

// ParseTime parses a device timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrTimeParse)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err == nil {
		return t, nil
	}
	for _, layout := range fallbackLayouts {
		if t, ferr := time.ParseInLocation(layout, s, time.UTC); ferr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q: %w", ErrTimeParse, s, err)
}

// TruncateSeconds replaces the last two characters with "00", turning
// "10:00:37" into "10:00:00". Shorter values become "00".
func TruncateSeconds(s string) string {
	r := []rune(s)
	if len(r) < 2 {
		return "00"
	}
	return string(r[:len(r)-2]) + "00"
}

// TimeOptions controls how ToTimed reads the Time column.
type TimeOptions struct {
	// Truncate drops the seconds of every value before parsing.
	Truncate bool
	// Machine tags every row.
	Machine string
}

// ToTimed converts a table with a Time column into a time-keyed table sorted
// by time. Rows with a blank time are dropped; any other unparsable time
// fails the whole table. Every other column becomes a value column.
func ToTimed(table *model.Table, opts TimeOptions) (*model.TimedTable, error) {
	timeIdx, err := table.ColumnIndex(model.ColumnTime)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", table.Name(), err)
	}

	header := table.Header()
	columns := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i != timeIdx {
			columns = append(columns, h)
		}
	}

	rows := make([]model.TimedRow, 0, table.Len())
	for _, record := range table.Records() {
		var cell model.Value
		if timeIdx < len(record) {
			cell = record[timeIdx]
		}
		if cell.IsBlank() {
			continue
		}
		raw := cell.String()
		if opts.Truncate {
			raw = TruncateSeconds(raw)
		}
		ts, err := ParseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", table.Name(), err)
		}

		values := make([]model.Value, 0, len(columns))
		for i := range header {
			if i == timeIdx {
				continue
			}
			if i < len(record) {
				values = append(values, record[i])
			} else {
				values = append(values, model.NullValue)
			}
		}
		rows = append(rows, model.TimedRow{Time: ts, Machine: opts.Machine, Values: values})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return model.NewTimedTable(table.Name(), columns, rows), nil
}
