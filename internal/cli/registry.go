package cli

import (
	"github.com/olekukonko/tablewriter"

	"github.com/SNUH-BMI/CDM/archive"
)

// RegistryCmd lists how archive members are decoded.
type RegistryCmd struct{}

// Run prints the default registry.
func (c *RegistryCmd) Run(g *Globals) error {
	table := tablewriter.NewWriter(g.Stdout)
	table.Header("Extension", "Category", "Recipe")
	for _, e := range archive.DefaultRegistry().Entries() {
		category, recipe := e.Category, e.Recipe.String()
		if e.Ignore {
			category, recipe = "-", "ignored"
		}
		if err := table.Append([]string{e.Extension, category, recipe}); err != nil {
			return err
		}
	}
	return table.Render()
}
