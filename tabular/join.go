package tabular

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Suffixes appended to value columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// OuterJoin merges two time-sorted tables on Time.
// Every time present on either side appears in the result, in ascending
// order. Equal times on both sides produce every left/right pairing, left
// order first. Cells missing on one side are null. Value columns found on
// both sides are renamed with the _x and _y suffixes. The machine of the
// result row is taken from the left row when present.
func OuterJoin(name string, left, right *model.TimedTable) *model.TimedTable {
	leftCols, rightCols := joinColumns(left.Columns(), right.Columns())
	columns := append(append([]string(nil), leftCols...), rightCols...)

	lrows := sortedRows(left.Rows())
	rrows := sortedRows(right.Rows())
	nl, nr := len(leftCols), len(rightCols)

	rows := make([]model.TimedRow, 0, max(len(lrows), len(rrows)))
	i, j := 0, 0
	for i < len(lrows) || j < len(rrows) {
		switch {
		case j >= len(rrows) || (i < len(lrows) && lrows[i].Time.Before(rrows[j].Time)):
			rows = append(rows, joinRow(&lrows[i], nil, nl, nr))
			i++
		case i >= len(lrows) || rrows[j].Time.Before(lrows[i].Time):
			rows = append(rows, joinRow(nil, &rrows[j], nl, nr))
			j++
		default:
			ie := runEnd(lrows, i)
			je := runEnd(rrows, j)
			for a := i; a < ie; a++ {
				for b := j; b < je; b++ {
					rows = append(rows, joinRow(&lrows[a], &rrows[b], nl, nr))
				}
			}
			i, j = ie, je
		}
	}

	return model.NewTimedTable(name, columns, rows)
}

func joinColumns(left, right []string) ([]string, []string) {
	shared := lo.Intersect(left, right)
	if len(shared) == 0 {
		return left, right
	}
	rename := func(cols []string, suffix string) []string {
		return lo.Map(cols, func(c string, _ int) string {
			if lo.Contains(shared, c) {
				return c + suffix
			}
			return c
		})
	}
	return rename(left, LeftSuffix), rename(right, RightSuffix)
}

func sortedRows(rows []model.TimedRow) []model.TimedRow {
	if sort.SliceIsSorted(rows, func(a, b int) bool { return rows[a].Time.Before(rows[b].Time) }) {
		return rows
	}
	out := append([]model.TimedRow(nil), rows...)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Time.Before(out[b].Time) })
	return out
}

// runEnd returns the index after the last row sharing rows[start].Time.
func runEnd(rows []model.TimedRow, start int) int {
	end := start + 1
	for end < len(rows) && rows[end].Time.Equal(rows[start].Time) {
		end++
	}
	return end
}

func joinRow(l, r *model.TimedRow, nl, nr int) model.TimedRow {
	values := make([]model.Value, nl+nr)
	var row model.TimedRow
	if l != nil {
		row.Time, row.Machine = l.Time, l.Machine
		copy(values[:nl], l.Values)
	}
	if r != nil {
		if l == nil {
			row.Time = r.Time
		}
		if row.Machine == "" {
			row.Machine = r.Machine
		}
		copy(values[nl:], r.Values)
	}
	row.Values = values
	return row
}

// Concat stacks tables vertically. The result holds the union of value
// columns in first-seen order; cells of columns a table lacks are null.
func Concat(name string, tables ...*model.TimedTable) *model.TimedTable {
	var columns []string
	for _, t := range tables {
		if t == nil {
			continue
		}
		columns = lo.Union(columns, t.Columns())
	}
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	var rows []model.TimedRow
	for _, t := range tables {
		if t == nil {
			continue
		}
		positions := lo.Map(t.Columns(), func(c string, _ int) int { return index[c] })
		for _, r := range t.Rows() {
			values := make([]model.Value, len(columns))
			for k, v := range r.Values {
				if k < len(positions) {
					values[positions[k]] = v
				}
			}
			rows = append(rows, model.TimedRow{Time: r.Time, Machine: r.Machine, Values: values, Session: r.Session})
		}
	}
	return model.NewTimedTable(name, columns, rows)
}

// SortByMachineTime returns a copy of the table stably sorted by machine
// then time.
func SortByMachineTime(t *model.TimedTable) *model.TimedTable {
	rows := append([]model.TimedRow(nil), t.Rows()...)
	sort.SliceStable(rows, func(a, b int) bool {
		if rows[a].Machine != rows[b].Machine {
			return rows[a].Machine < rows[b].Machine
		}
		return rows[a].Time.Before(rows[b].Time)
	})
	return t.WithRows(rows)
}

// DropDuplicates removes rows identical to an earlier row, keeping the first.
// Null cells compare equal to each other and differ from empty strings.
// The session number is not compared.
func DropDuplicates(t *model.TimedTable) *model.TimedTable {
	seen := make(map[string]struct{}, t.Len())
	rows := make([]model.TimedRow, 0, t.Len())
	for _, r := range t.Rows() {
		key := rowKey(r)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rows = append(rows, r)
	}
	return t.WithRows(rows)
}

func rowKey(r model.TimedRow) string {
	var b strings.Builder
	b.WriteString(r.Time.UTC().Format("20060102150405.000000000"))
	b.WriteByte(0)
	b.WriteString(r.Machine)
	for _, v := range r.Values {
		b.WriteByte(0)
		if v.IsNull() {
			b.WriteByte(1)
			continue
		}
		b.WriteByte(2)
		b.WriteString(v.String())
	}
	return b.String()
}
