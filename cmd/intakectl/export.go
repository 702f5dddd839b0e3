package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/lca-intake/internal/export"
)

const formatAll = "all"

type exportOptions struct {
	outDir   string
	format   string
	template string
	timeout  time.Duration
}

func newExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write export files for a document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := opts.formats()
			if err != nil {
				return err
			}

			s, err := root.session(cmd)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}

			sheets := export.NewCapability(export.DefaultLoader(opts.template), opts.timeout)
			exporter := export.NewExporter(sheets)
			payload, qc := s.PayloadWithQC()

			for _, f := range formats {
				var buf bytes.Buffer
				if err := exporter.Export(cmd.Context(), &buf, f, payload, qc); err != nil {
					return err
				}
				path := filepath.Join(opts.outDir, f.FileName())
				if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				slog.Info("export written", "format", f, "path", path, "bytes", buf.Len())
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().StringVar(&opts.format, "format", formatAll, "csv, xlsx, json, pdf or all")
	cmd.Flags().StringVar(&opts.template, "template", "", "optional workbook template for xlsx")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "spreadsheet writer load timeout")
	return cmd
}

func (o *exportOptions) formats() ([]export.Format, error) {
	if o.format == formatAll {
		return export.Formats, nil
	}
	f, err := export.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return []export.Format{f}, nil
}
