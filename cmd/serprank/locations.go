package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/FranksOps/serprank/internal/input"
)

func newLocationsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locations",
		Short: "List the supported search locations",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(a.stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Location", "Code", ""})
			for _, loc := range input.Locations {
				mark := ""
				if loc == input.DefaultLocation {
					mark = "default"
				}
				t.AppendRow(table.Row{loc.Label, loc.Country, mark})
			}
			t.Render()
		},
	}
}
