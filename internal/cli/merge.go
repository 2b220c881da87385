package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	cdm "github.com/SNUH-BMI/CDM"
	"github.com/SNUH-BMI/CDM/metric"
	"github.com/SNUH-BMI/CDM/session"
)

// MergeCmd runs the archive merger.
type MergeCmd struct {
	Input           string `short:"i" help:"Root directory searched for <machine>/<year>/*.LOX." default:"${config_input_root}"`
	Output          string `short:"o" help:"Output directory; per-group tables go to its merge subdirectory." default:"${config_output_dir}"`
	Workers         int    `short:"w" help:"Groups decoded concurrently." default:"${config_workers}"`
	Policy          string `help:"Start marker handling inside an open session (restart-on-start, keep-first-start)." default:"${config_session_policy}"`
	RequireMetadata bool   `help:"Drop groups without fluid and pressure logs." default:"${config_require_metadata}" negatable:""`
	MetricsFile     string `help:"Write Prometheus text metrics to this file." default:"${config_metrics_file}"`

	OutputFlags `embed:""`
}

// Run executes the merge.
func (c *MergeCmd) Run(g *Globals) error {
	opts, err := c.DumpOptions()
	if err != nil {
		return err
	}
	policy, err := session.ParsePolicy(c.Policy)
	if err != nil {
		return err
	}

	var metrics *metric.Metrics
	if c.MetricsFile != "" {
		metrics = metric.New()
	}

	builder := cdm.NewBuilder().
		SetInputRoot(c.Input).
		SetOutputDir(c.Output).
		SetDumpOptions(opts).
		SetPolicy(policy).
		SetRequireMetadata(c.RequireMetadata).
		SetWorkers(c.Workers).
		SetLogger(g.Logger).
		SetMetrics(metrics)
	if g.Config != nil {
		builder = builder.
			SetEventLayout(g.Config.Layouts.Events.Layout()).
			SetMetadataLayout(g.Config.Layouts.Metadata.Layout())
	}

	merger, err := builder.Build(g.Ctx)
	if err != nil {
		return err
	}
	report, err := merger.Run(g.Ctx)
	if err != nil {
		return err
	}

	if err := renderReport(g.Stdout, report); err != nil {
		return err
	}
	if metrics != nil {
		if err := metrics.WriteToTextfile(c.MetricsFile); err != nil {
			g.Logger.Warn("metrics not written", zap.String("file", c.MetricsFile), zap.Error(err))
		}
	}
	return nil
}

func renderReport(w io.Writer, r *cdm.Report) error {
	table := tablewriter.NewWriter(w)
	table.Header("Machine", "Year", "Files", "Sessions", "Events", "Metadata", "Duration", "Status")
	for _, g := range r.Groups {
		status := "written"
		if g.Skipped != "" {
			status = g.Skipped
		}
		sessions := "-"
		if g.Sessions > 0 {
			sessions = fmt.Sprintf("%d-%d", g.FirstSession, g.LastSession)
		}
		if err := table.Append([]string{
			g.Folder,
			g.Year,
			fmt.Sprint(g.Files),
			sessions,
			fmt.Sprint(g.EventRows),
			fmt.Sprint(g.MetadataRows),
			g.Duration.Round(time.Millisecond).String(),
			status,
		}); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if len(r.Outputs) == 0 {
		_, err := fmt.Fprintln(w, "No valid data was processed")
		return err
	}
	_, err := fmt.Fprintf(w,
		"Total sessions: %d\nTotal unique patients: %d\nTotal events: %d\nTotal metadata records: %d\n",
		r.TotalSessions, r.UniquePatients, r.EventRows, r.MetadataRows)
	if err != nil {
		return err
	}
	for _, p := range r.Outputs {
		if _, err := fmt.Fprintln(w, "  - "+p); err != nil {
			return err
		}
	}
	return nil
}
