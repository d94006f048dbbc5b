package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var operationsJSON bool

// operationsCmd выводит список операций и их доступность.
var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "Показать доступные операции",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ops := a.Catalog.List()

		out := cmd.OutOrStdout()
		if operationsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"operations": ops})
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tВХОД\tВЫХОД\tENDPOINT\tДОСТУПНА")
		for _, d := range ops {
			fmt.Fprintf(tw, "%s\t%s\t%s\t/api/%s\t%t\n", d.ID, d.Accepts, d.Produces, d.Endpoint, d.Available)
		}
		return tw.Flush()
	},
}

func init() {
	operationsCmd.Flags().BoolVar(&operationsJSON, "json", false, "вывод в формате JSON")
}
