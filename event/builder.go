package event

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/tabular"
)

// ErrMissingColumns is returned when the event log lacks the code, text or
// sample column, so no category can be extracted.
var ErrMissingColumns = errors.New("event log is missing source columns")

// Builder turns reconstructed user event logs into event tables.
type Builder struct {
	categories []Category
	logger     *zap.Logger
}

// NewBuilder creates a Builder for the tracked categories.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		categories: Categories,
		logger:     logger,
	}
}

// Build extracts the tracked categories from one event log.
// Times are truncated to the minute before parsing and any unparsable time
// fails the whole log with tabular.ErrTimeParse. Each category becomes one
// column, outer-joined on time, and every row is tagged with machine.
func (b *Builder) Build(table *model.Table, machine string) (*model.TimedTable, error) {
	timed, err := tabular.ToTimed(table, tabular.TimeOptions{Truncate: true})
	if err != nil {
		return nil, err
	}

	codeIdx, errCode := timed.ColumnIndex(SourceCode)
	textIdx, errText := timed.ColumnIndex(SourceText)
	sampleIdx, errSample := timed.ColumnIndex(SourceSample)
	if err := errors.Join(errCode, errText, errSample); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingColumns, table.Name(), err)
	}

	var acc *model.TimedTable
	for _, c := range b.categories {
		projected := project(timed, c, codeIdx, textIdx, sampleIdx)
		if acc == nil {
			acc = projected
			continue
		}
		acc = tabular.OuterJoin(table.Name(), acc, projected)
	}
	if acc == nil {
		return model.NewTimedTable(table.Name(), nil, nil), nil
	}

	rows := acc.Rows()
	for i := range rows {
		rows[i].Machine = machine
	}
	b.logger.Debug("event table built",
		zap.String("file", table.Name()),
		zap.String("machine", machine),
		zap.Int("source_rows", timed.Len()),
		zap.Int("event_rows", acc.Len()),
	)
	return acc.WithName(table.Name()), nil
}

// project selects the rows of one category as a single-column table.
func project(timed *model.TimedTable, c Category, codeIdx, textIdx, sampleIdx int) *model.TimedTable {
	var rows []model.TimedRow
	for _, r := range timed.Rows() {
		if r.Values[codeIdx].String() != c.Code || r.Values[textIdx].String() != c.Text {
			continue
		}
		if r.Values[codeIdx].IsNull() || r.Values[textIdx].IsNull() {
			continue
		}
		sample := r.Values[sampleIdx]
		if !sample.IsNull() && strings.TrimSpace(sample.String()) == "" {
			sample = model.NewValue(Marker)
		}
		rows = append(rows, model.TimedRow{Time: r.Time, Values: []model.Value{sample}})
	}
	return model.NewTimedTable(c.Column, []string{c.Column}, rows)
}

// Assemble concatenates the event tables of one group, sorts them by machine
// then time and drops exact duplicate rows.
func Assemble(name string, tables ...*model.TimedTable) *model.TimedTable {
	merged := tabular.Concat(name, tables...)
	return tabular.DropDuplicates(tabular.SortByMachineTime(merged))
}

// Markers reports, per row, whether the row starts or ends a treatment.
// A start has a patient id and the start marker; an end has any end value.
func Markers(events *model.TimedTable) (starts, ends []bool, err error) {
	pidIdx, err1 := events.ColumnIndex(ColumnPatientID)
	startIdx, err2 := events.ColumnIndex(ColumnStart)
	endIdx, err3 := events.ColumnIndex(ColumnEnd)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, nil, err
	}

	rows := events.Rows()
	starts = make([]bool, len(rows))
	ends = make([]bool, len(rows))
	for i, r := range rows {
		starts[i] = !r.Values[pidIdx].IsNull() && r.Values[startIdx].Equal(model.NewValue(Marker))
		ends[i] = !r.Values[endIdx].IsNull()
	}
	return starts, ends, nil
}
