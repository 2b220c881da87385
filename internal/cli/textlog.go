package cli

import (
	"fmt"
	"slices"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/SNUH-BMI/CDM/domain/model"
	"github.com/SNUH-BMI/CDM/output"
	"github.com/SNUH-BMI/CDM/textlog"
)

// TextlogCmd extracts the device parameter dumps.
type TextlogCmd struct {
	Input  string `short:"i" help:"Directory holding one folder per device." default:"${config_input_root}"`
	Output string `short:"o" help:"Output directory." default:"${config_output_dir}"`
	Name   string `help:"Output table name." default:"exalis_data_all_devices"`

	OutputFlags `embed:""`
}

// Run executes the extraction.
func (c *TextlogCmd) Run(g *Globals) error {
	opts, err := c.DumpOptions()
	if err != nil {
		return err
	}
	entries, err := textlog.NewExtractor(g.Logger).Extract(g.Ctx, c.Input)
	if err != nil {
		return err
	}
	if err := ensureDir(c.Output); err != nil {
		return err
	}

	path, err := output.NewWriter(opts, g.Logger).Write(g.Ctx, c.Output, c.Name, textlog.ToTable(c.Name, entries))
	if err != nil {
		return err
	}

	s := textlog.Summarize(entries)
	if _, err := fmt.Fprintf(g.Stdout, "Saved %s\nTotal records: %d\nNumber of devices: %d\nNumber of columns: %d\n",
		path, s.Records, len(s.RecordsByDevice), s.Columns); err != nil {
		return err
	}
	if s.Records > 0 {
		if _, err := fmt.Fprintf(g.Stdout, "Time range: %s ~ %s\n",
			s.First.Format(model.TimeLayout), s.Last.Format(model.TimeLayout)); err != nil {
			return err
		}
	}

	devices := lo.Keys(s.RecordsByDevice)
	slices.Sort(devices)
	table := tablewriter.NewWriter(g.Stdout)
	table.Header("Device", "Records")
	for _, d := range devices {
		if err := table.Append([]string{d, fmt.Sprint(s.RecordsByDevice[d])}); err != nil {
			return err
		}
	}
	return table.Render()
}
