package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Print the mass QC banner and run the submission checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			qc := s.QC()
			fmt.Fprintf(out, "QC %s: %s\n", qc.Status, qc.Message())

			if err := s.Submit(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Submission checks passed.")
			return nil
		},
	}
}
