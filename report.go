package cdm

import (
	"time"

	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/event"
)

// GroupReport describes the outcome of one (folder, year) group.
type GroupReport struct {
	Folder       string
	Year         string
	Files        int
	EventRows    int
	MetadataRows int
	Sessions     int
	FirstSession int
	LastSession  int
	// Skipped holds why nothing was written for the group; empty when written.
	Skipped  string
	Outputs  []string
	Duration time.Duration
}

// Report summarizes a merge run.
type Report struct {
	Groups []GroupReport
	// TotalSessions is the highest session number assigned.
	TotalSessions  int
	UniquePatients int
	EventRows      int
	MetadataRows   int
	// Outputs lists the cumulative tables; empty when no group was written.
	Outputs  []string
	Duration time.Duration
}

// Written returns the groups that produced output.
func (r *Report) Written() []GroupReport {
	return lo.Filter(r.Groups, func(g GroupReport, _ int) bool { return g.Skipped == "" })
}

func (r *Report) summarize(events, meta *model.TimedTable, totalSessions int) {
	r.TotalSessions = totalSessions
	r.EventRows = events.Len()
	r.MetadataRows = meta.Len()

	idx, err := events.ColumnIndex(event.ColumnPatientID)
	if err != nil {
		return
	}
	patients := lo.FilterMap(events.Rows(), func(row model.TimedRow, _ int) (string, bool) {
		if idx >= len(row.Values) || row.Values[idx].IsNull() {
			return "", false
		}
		return row.Values[idx].String(), true
	})
	r.UniquePatients = len(lo.Uniq(patients))
}
