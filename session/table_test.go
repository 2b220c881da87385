package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/event"
)

var t0 = time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)

// eventRow builds an event row: kind is S (start with patient), E (end) or
// "." (plain measurement).
func eventRow(machine string, minute int, kind byte) model.TimedRow {
	cols := event.Columns()
	values := make([]model.Value, len(cols))
	for i, c := range cols {
		switch {
		case c == event.ColumnPatientID && kind == 'S':
			values[i] = model.NewValue("P-" + machine)
		case c == event.ColumnStart && kind == 'S':
			values[i] = model.NewValue(event.Marker)
		case c == event.ColumnEnd && kind == 'E':
			values[i] = model.NewValue(event.Marker)
		case c == "BFR" && kind == '.':
			values[i] = model.NewValue("150")
		}
	}
	return model.TimedRow{
		Time:    t0.Add(time.Duration(minute) * time.Minute),
		Machine: machine,
		Values:  values,
		Session: 99,
	}
}

func eventTable(rows ...model.TimedRow) *model.TimedTable {
	return model.NewTimedTable("events", event.Columns(), rows)
}

func TestSegmentTable(t *testing.T) {
	t.Parallel()

	events := eventTable(
		eventRow("M1", 0, 'S'),
		eventRow("M1", 1, '.'),
		eventRow("M1", 2, 'E'),
		eventRow("M1", 3, 'S'),
		eventRow("M1", 4, 'E'),
		eventRow("M2", 0, 'E'),
		eventRow("M2", 5, 'S'),
		eventRow("M2", 9, 'E'),
		eventRow("M2", 10, 'S'),
	)

	counter := NewCounter(1)
	got, sessions, err := SegmentTable(events, counter, DefaultPolicy)
	require.NoError(t, err)

	labels := make([]int, got.Len())
	for i, r := range got.Rows() {
		labels[i] = r.Session
	}
	assert.Equal(t, []int{1, 1, 1, 2, 2, 0, 3, 3, 0}, labels)
	assert.Equal(t, 99, events.Rows()[0].Session, "input is not modified")

	require.Len(t, sessions, 3)
	assert.Equal(t, model.Session{
		Machine: "M2", Number: 3, StartIndex: 1, EndIndex: 2,
		Start: t0.Add(5 * time.Minute), End: t0.Add(9 * time.Minute),
	}, sessions[2])
	assert.Equal(t, 4, counter.Peek())
}

func TestSegmentTable_MissingColumns(t *testing.T) {
	t.Parallel()

	_, _, err := SegmentTable(model.NewTimedTable("x", []string{"BFR"}, nil), NewCounter(1), DefaultPolicy)
	assert.ErrorIs(t, err, model.ErrColumnNotFound)
}
