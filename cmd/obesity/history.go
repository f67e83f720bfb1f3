package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var errNoHistory = errors.New("history disabled: set database.path or pass --db")

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	var stats bool
	var output string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored predictions, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			store := a.Store()
			if store == nil {
				return errNoHistory
			}

			if stats {
				counts, err := store.CountByLabel(cmd.Context())
				if err != nil {
					return err
				}
				if output == outputJSON {
					return writeJSON(cmd.OutOrStdout(), counts)
				}
				return printCounts(cmd.OutOrStdout(), counts)
			}
			records, err := store.RecentPredictions(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printHistory(cmd.OutOrStdout(), output, records)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of predictions to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "Count predictions per label instead")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}

func newLabelsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List the categories the classifier predicts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			return printLabels(cmd.OutOrStdout(), output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}
