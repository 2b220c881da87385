package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"

	"github.com/SNUH-BMI/CDM/waveform"
)

// WaveformCmd converts EDF recordings.
type WaveformCmd struct {
	Input  string `short:"i" help:"Directory holding <icu>_<patient>_<yymmdd>_<hhmmss>.edf recordings." default:"${config_input_root}"`
	Output string `short:"o" help:"Directory receiving one JSON file per patient group." default:"${config_output_dir}"`
}

// Run executes the conversion.
func (c *WaveformCmd) Run(g *Globals) error {
	results, err := waveform.NewExtractor(nil, g.Logger).Extract(g.Ctx, c.Input, c.Output)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(g.Stdout)
	table.Header("Patient", "Files", "Tracks", "Points", "File")
	for _, r := range results {
		points := 0
		for _, n := range r.Tracks {
			points += n
		}
		if err := table.Append([]string{
			r.PatientID,
			fmt.Sprint(r.Files),
			fmt.Sprint(len(r.Tracks)),
			fmt.Sprint(points),
			r.Path,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
