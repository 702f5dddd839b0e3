package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lca-intake/internal/intake"
	"github.com/JonMunkholm/lca-intake/internal/logging"
)

type rootOptions struct {
	file     string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "intakectl",
		Short:         "Validate and export LCA/EPD intake documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), opts.logLevel, "text")
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.file, "file", "f", "", `intake document, YAML or JSON ("-" reads stdin)`)
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	_ = cmd.MarkPersistentFlagRequired("file")

	cmd.AddCommand(
		newValidateCmd(opts),
		newExportCmd(opts),
		newTonKmCmd(opts),
	)
	return cmd
}

// session builds a fresh session from the document named by --file.
func (o *rootOptions) session(cmd *cobra.Command) (*intake.Session, error) {
	var r io.Reader
	if o.file == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		defer f.Close()
		r = f
	}

	doc, err := intake.LoadDocument(r)
	if err != nil {
		return nil, err
	}

	s := intake.NewSession(uuid.NewString(), time.Now)
	if err := intake.ApplyDocument(s, doc); err != nil {
		return nil, err
	}
	return s, nil
}
