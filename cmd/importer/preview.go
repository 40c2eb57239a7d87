package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezkam/cadence/internal/application/importer"
	"github.com/rezkam/cadence/internal/recurring"
)

func previewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file.csv>",
		Short: "Show how each row's schedule text would be interpreted",
		Long: `Parse every row of a CSV export and print the recurrence rule chosen for
its when column. Nothing is written to storage. Rows whose schedule text is
not recognized are flagged; they would be imported as yearly on January 1.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}

			rows, err := readFile(args[0])
			if err != nil {
				return err
			}

			// Preview never touches the store.
			imp, err := importer.New(nil, recurring.NewDomainGenerator())
			if err != nil {
				return fmt.Errorf("failed to create importer: %w", err)
			}

			return writePreview(cmd.OutOrStdout(), format, imp.Preview(cmd.Context(), rows))
		},
	}
}
