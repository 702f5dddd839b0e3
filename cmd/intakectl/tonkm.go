package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lca-intake/internal/export"
)

var transportTables = map[string]bool{
	export.TableA2TransportBOM:       true,
	export.TableA3TransportPackaging: true,
	export.TableA3TransportAncillary: true,
}

func newTonKmCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tonkm",
		Short: "Print the inbound transport tables as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			first := true
			for _, t := range export.Generate(s.Payload()) {
				if !transportTables[t.Name] {
					continue
				}
				if !first {
					fmt.Fprintln(out)
				}
				first = false

				fmt.Fprintf(out, "# %s (total %.6f ton-km)\n", t.Name, tableTonKm(t))
				if err := export.WriteCSV(out, t); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func tableTonKm(t export.Table) float64 {
	col := -1
	for i, c := range t.Columns {
		if c == "ton_km_per_product" {
			col = i
		}
	}
	var total float64
	for _, row := range t.Rows {
		if col >= 0 && col < len(row) {
			if v, ok := row[col].(float64); ok {
				total += v
			}
		}
	}
	return total
}
