package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"obesitycheck/dataset"
	"obesitycheck/ml"
)

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var (
		dataPath, output string
		strict           bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the loaded classifier against a labelled CSV.",
		Long: `Score the loaded classifier against a labelled CSV.

The CSV needs the sixteen answer columns and the NObeyesdad label column.
Values are scored as written, fractional answers included. Rows with a
category outside the encoding tables are skipped and counted. With
--strict every row goes through the form validation first and rows it
rejects are skipped too. Nothing is recorded in the history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			samples, err := dataset.ReadFile(dataPath)
			if err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			var report dataset.Report
			if strict {
				report, err = dataset.Evaluate(cmd.Context(), a.Service.Preview, samples)
			} else {
				report, err = dataset.EvaluateRows(cmd.Context(), a.Service.Score, samples)
			}
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), output, report)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "Labelled CSV dataset")
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	cmd.Flags().BoolVar(&strict, "strict", false, "Validate every row like the web form")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newFitScalerCmd(opts *rootOptions) *cobra.Command {
	var dataPath, outPath string
	cmd := &cobra.Command{
		Use:   "fit-scaler",
		Short: "Fit the standard scaler on a CSV dataset and write the scaler artifact.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = cfg.Artifacts.ScalerPath
			}
			samples, err := dataset.ReadFile(dataPath)
			if err != nil {
				return err
			}
			scaler, skipped, err := dataset.FitScaler(samples)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(outPath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			if err := ml.SaveScaler(outPath, scaler); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scaler fitted on %d rows (%d skipped), saved to %s\n",
				len(samples)-skipped, skipped, outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "CSV dataset")
	cmd.Flags().StringVar(&outPath, "out", "", "Output path, defaults to artifacts.scaler_path")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
