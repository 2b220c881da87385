package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/tabular"
)

func eventLog(rows ...[]string) *model.Table {
	records := make([]model.Record, len(rows))
	for i, r := range rows {
		records[i] = model.NewRecord(r)
	}
	return model.NewTable("20230105", model.Header{"Time", SourceCode, SourceText, SourceSample}, records)
}

func cell(t *testing.T, tbl *model.TimedTable, row int, col string) model.Value {
	t.Helper()

	idx, err := tbl.ColumnIndex(col)
	require.NoError(t, err)
	return tbl.Rows()[row].Values[idx]
}

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	log := eventLog(
		[]string{"2023-01-05 10:00:12", "416", "환자 인식 번호:", "P001"},
		[]string{"2023-01-05 10:00:40", "16", "치료가 시작되었습니다(실행 모드).", ""},
		[]string{"2023-01-05 10:01:05", "17", "혈액", "150"},
		[]string{"2023-01-05 10:01:30", "20", "대체용액", "1000"},
		[]string{"2023-01-05 10:01:31", "20", "재시작을 선택했습니다.", ""},
		[]string{"2023-01-05 10:05:00", "999", "untracked", "x"},
		[]string{"", "21", "치료 종료를 선택했습니다.", ""},
		[]string{"2023-01-05 11:00:59", "21", "치료 종료를 선택했습니다.", ""},
	)

	got, err := NewBuilder(zaptest.NewLogger(t)).Build(log, "M1")
	require.NoError(t, err)

	assert.Equal(t, Columns(), got.Columns())
	require.Equal(t, 3, got.Len())

	// 10:00 holds patient id and start, joined on the truncated minute
	assert.Equal(t, time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC), got.Rows()[0].Time)
	assert.Equal(t, "P001", cell(t, got, 0, ColumnPatientID).String())
	assert.Equal(t, Marker, cell(t, got, 0, ColumnStart).String())
	assert.True(t, cell(t, got, 0, "BFR").IsNull())

	// code 20 is split by text into Replace and HD_restart
	assert.Equal(t, "150", cell(t, got, 1, "BFR").String())
	assert.Equal(t, "1000", cell(t, got, 1, "Replace").String())
	assert.Equal(t, Marker, cell(t, got, 1, "HD_restart").String())

	assert.Equal(t, Marker, cell(t, got, 2, ColumnEnd).String())
	for _, r := range got.Rows() {
		assert.Equal(t, "M1", r.Machine)
	}
}

func TestBuilder_Build_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unparsable time fails the file", func(t *testing.T) {
		t.Parallel()

		log := eventLog(
			[]string{"2023-01-05 10:00:12", "416", "환자 인식 번호:", "P001"},
			[]string{"garbage time", "17", "혈액", "150"},
		)
		_, err := NewBuilder(nil).Build(log, "M1")
		assert.ErrorIs(t, err, tabular.ErrTimeParse)
	})

	t.Run("missing source columns", func(t *testing.T) {
		t.Parallel()

		log := model.NewTable("x", model.Header{"Time", "Sample"}, []model.Record{
			model.NewRecord([]string{"2023-01-05 10:00:00", "1"}),
		})
		_, err := NewBuilder(nil).Build(log, "M1")
		assert.ErrorIs(t, err, ErrMissingColumns)
	})
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	builder := NewBuilder(nil)
	day1, err := builder.Build(eventLog(
		[]string{"2023-01-05 10:00:00", "17", "혈액", "150"},
	), "M2")
	require.NoError(t, err)
	day2, err := builder.Build(eventLog(
		[]string{"2023-01-04 09:00:00", "17", "혈액", "120"},
		[]string{"2023-01-05 10:00:30", "17", "혈액", "150"},
	), "M2")
	require.NoError(t, err)
	other, err := builder.Build(eventLog(
		[]string{"2023-01-06 09:00:00", "17", "혈액", "100"},
	), "M1")
	require.NoError(t, err)

	got := Assemble("group", day1, day2, other)
	require.Equal(t, 3, got.Len(), "the repeated 10:00 row is dropped")
	assert.Equal(t, "M1", got.Rows()[0].Machine)
	assert.Equal(t, "120", cell(t, got, 1, "BFR").String())
	assert.Equal(t, "150", cell(t, got, 2, "BFR").String())
}

func TestMarkers(t *testing.T) {
	t.Parallel()

	cols := Columns()
	mk := func(pid, start, end model.Value) model.TimedRow {
		values := make([]model.Value, len(cols))
		for i, c := range cols {
			switch c {
			case ColumnPatientID:
				values[i] = pid
			case ColumnStart:
				values[i] = start
			case ColumnEnd:
				values[i] = end
			}
		}
		return model.TimedRow{Values: values}
	}
	o := model.NewValue(Marker)
	null := model.NullValue

	events := model.NewTimedTable("e", cols, []model.TimedRow{
		mk(model.NewValue("P1"), o, null),
		mk(null, o, null),
		mk(model.NewValue("P1"), model.NewValue("x"), null),
		mk(null, null, model.NewValue("")),
		mk(model.NewValue("P1"), o, o),
	})

	starts, ends, err := Markers(events)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false, false, false, true}, starts)
	assert.Equal(t, []bool{false, false, false, true, true}, ends)

	_, _, err = Markers(model.NewTimedTable("bad", []string{"a"}, nil))
	assert.ErrorIs(t, err, model.ErrColumnNotFound)
}
