package session

import (
	"sort"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
)

// Renumber drops unassigned rows from both tables and maps the remaining
// session numbers, in ascending order, onto offset, offset+1, ...
// It returns the renumbered tables and the offset for the next group.
// The inputs are not modified.
func Renumber(events, meta *model.TimedTable, offset int) (*model.TimedTable, *model.TimedTable, int) {
	numbers := lo.Uniq(lo.FilterMap(events.Rows(), func(r model.TimedRow, _ int) (int, bool) {
		return r.Session, r.Session != 0
	}))
	sort.Ints(numbers)

	mapping := make(map[int]int, len(numbers))
	for i, n := range numbers {
		mapping[n] = offset + i
	}

	return apply(events, mapping), apply(meta, mapping), offset + len(numbers)
}

func apply(t *model.TimedTable, mapping map[int]int) *model.TimedTable {
	if t == nil {
		return nil
	}
	rows := make([]model.TimedRow, 0, t.Len())
	for _, r := range t.Rows() {
		n, ok := mapping[r.Session]
		if !ok {
			continue
		}
		r = r.Clone()
		r.Session = n
		rows = append(rows, r)
	}
	return t.WithRows(rows)
}
