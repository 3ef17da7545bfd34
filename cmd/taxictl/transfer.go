package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/garnizeh/taxi/internal/export"
	"github.com/garnizeh/taxi/internal/importer"
	"github.com/garnizeh/taxi/internal/report"
	"github.com/garnizeh/taxi/internal/repository/sqlite"
)

func newImportCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import passengers from a CSV, XLS or XLSX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			records, err := importer.ParseFile(args[0], f)
			if err != nil {
				return err
			}

			d, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer d.Close()
			repo := sqlite.New(d, c.logger)

			existing, err := repo.ListPassengers(ctx)
			if err != nil {
				return err
			}
			res := importer.Classify(records, existing)

			out := cmd.OutOrStdout()
			for _, inv := range res.Invalid {
				fmt.Fprintf(out, "linha %d (%s): %v\n", inv.Index, inv.Passenger.Name, inv.Errors)
			}

			imported := 0
			if !dryRun && len(res.Unique) > 0 {
				created, err := repo.CreatePassengers(ctx, res.Unique)
				if err != nil {
					return err
				}
				imported = len(created)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "total\t%d\n", res.Summary.Total)
			if dryRun {
				fmt.Fprintf(tw, "unique (dry run)\t%d\n", res.Summary.Unique)
			} else {
				fmt.Fprintf(tw, "imported\t%d\n", imported)
			}
			fmt.Fprintf(tw, "duplicates\t%d\n", res.Summary.Duplicates)
			fmt.Fprintf(tw, "invalid\t%d\n", res.Summary.Invalid)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Classify records without writing them")
	return cmd
}

func newExportCmd(c *cli) *cobra.Command {
	var filters export.Filters
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write the requests report to an xlsx file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := filters.Validate(); err != nil {
				return err
			}

			d, err := c.open(ctx)
			if err != nil {
				return err
			}
			defer d.Close()

			repo := sqlite.New(d, c.logger)
			builder := report.New(filepath.Dir(args[0]), report.WithLogger(c.logger))
			svc := export.NewService(repo, builder, nil, nil, export.WithLogger(c.logger))

			dl, err := svc.Download(ctx, filters)
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[0], dl.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d solicitações exportadas para %s.\n", dl.Count, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&filters.Status, "status", "", "Only requests with this status (pending, completed, cancelled, all)")
	cmd.Flags().StringVar(&filters.DateFrom, "from", "", "First request date, YYYY-MM-DD")
	cmd.Flags().StringVar(&filters.DateTo, "to", "", "Last request date, YYYY-MM-DD")
	return cmd
}
