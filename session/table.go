package session

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/event"
)

// SegmentTable segments every machine of an event table, machines taken in
// order of first appearance. It returns a copy of the table with the
// session column written, and the finalized sessions in numbering order.
func SegmentTable(events *model.TimedTable, counter *Counter, policy Policy) (*model.TimedTable, []model.Session, error) {
	starts, ends, err := event.Markers(events)
	if err != nil {
		return nil, nil, fmt.Errorf("segment %s: %w", events.Name(), err)
	}

	out := events.Clone()
	rows := out.Rows()
	for i := range rows {
		rows[i].Session = 0
	}

	blocks := lo.GroupBy(lo.Range(len(rows)), func(i int) string { return rows[i].Machine })
	machines := lo.Uniq(lo.Map(rows, func(r model.TimedRow, _ int) string { return r.Machine }))

	var sessions []model.Session
	for _, machine := range machines {
		idx := blocks[machine]
		bs := make([]bool, len(idx))
		be := make([]bool, len(idx))
		for k, i := range idx {
			bs[k], be[k] = starts[i], ends[i]
		}

		labels, spans := Segment(bs, be, counter, policy)
		for k, i := range idx {
			rows[i].Session = labels[k]
		}
		for _, s := range spans {
			sessions = append(sessions, model.Session{
				Machine:    machine,
				Number:     s.Number,
				StartIndex: s.Start,
				EndIndex:   s.End,
				Start:      rows[idx[s.Start]].Time,
				End:        rows[idx[s.End]].Time,
			})
		}
	}
	return out, sessions, nil
}
