// Package metadata joins the fluid and pressure logs of an archive into one
// time-keyed table and assigns its rows to treatment sessions.
package metadata

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/tabular"
)

// Build outer-joins a fluids log and a pressure log on time and tags every
// row with machine. Times are parsed as logged; rows with a blank time are
// dropped and any other unparsable time fails the pair.
func Build(name string, fluids, pressure *model.Table, machine string) (*model.TimedTable, error) {
	opts := tabular.TimeOptions{Machine: machine}
	f, err := tabular.ToTimed(fluids, opts)
	if err != nil {
		return nil, fmt.Errorf("fluids: %w", err)
	}
	p, err := tabular.ToTimed(pressure, opts)
	if err != nil {
		return nil, fmt.Errorf("pressure: %w", err)
	}
	return tabular.OuterJoin(name, f, p), nil
}

// Assemble concatenates the metadata tables of one group, sorts them by
// machine then time and drops exact duplicate rows.
func Assemble(name string, tables ...*model.TimedTable) *model.TimedTable {
	merged := tabular.Concat(name, tables...)
	return tabular.DropDuplicates(tabular.SortByMachineTime(merged))
}

// Assign returns a copy of meta where every row whose machine and time fall
// within a session's closed [Start, End] interval carries that session's
// number. When intervals touch, the lowest numbered session wins. Rows
// outside every session keep 0.
func Assign(meta *model.TimedTable, sessions []model.Session) *model.TimedTable {
	byMachine := lo.GroupBy(sessions, func(s model.Session) string { return s.Machine })
	lookups := make(map[string]func(row model.TimedRow) int, len(byMachine))
	for machine, ss := range byMachine {
		lookups[machine] = newLookup(ss)
	}

	out := meta.Clone()
	rows := out.Rows()
	for i := range rows {
		rows[i].Session = 0
		if lookup, ok := lookups[rows[i].Machine]; ok {
			rows[i].Session = lookup(rows[i])
		}
	}
	return out
}

// newLookup returns a session finder for one machine. Sessions of a machine
// are normally ordered in time; they are then searched by bisection,
// otherwise every session is scanned in number order.
func newLookup(sessions []model.Session) func(row model.TimedRow) int {
	ss := append([]model.Session(nil), sessions...)
	sort.SliceStable(ss, func(a, b int) bool { return ss[a].Number < ss[b].Number })

	ordered := true
	for k := 1; k < len(ss); k++ {
		if ss[k].Start.Before(ss[k-1].Start) || ss[k].End.Before(ss[k-1].End) {
			ordered = false
			break
		}
	}

	if !ordered {
		return func(row model.TimedRow) int {
			for _, s := range ss {
				if s.Contains(row.Time) {
					return s.Number
				}
			}
			return 0
		}
	}
	return func(row model.TimedRow) int {
		k := sort.Search(len(ss), func(k int) bool { return !ss[k].End.Before(row.Time) })
		if k < len(ss) && ss[k].Contains(row.Time) {
			return ss[k].Number
		}
		return 0
	}
}
