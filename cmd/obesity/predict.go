package main

import (
	"github.com/spf13/cobra"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var output string
	var ff *formFlags
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the obesity level for one set of answers.",
		Long: `Predict the obesity level for one set of answers.

Every answer has a flag defaulting to the form default. With --interactive
each question is asked in turn. Categorical answers are case-insensitive.`,
		Example: `  obesity predict --weight 95 --gender female --mtrans walking
  obesity predict -i -o table`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			f, err := ff.form(cmd)
			if err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Service.Predict(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), output, result)
		},
	}
	ff = addFormFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputText, "Output format: text or table or json")
	return cmd
}

func newEncodeCmd(opts *rootOptions) *cobra.Command {
	var output string
	var ff *formFlags
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Show how answers are encoded and scaled before prediction.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			f, err := ff.form(cmd)
			if err != nil {
				return err
			}
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			enc, err := a.Service.Encode(cmd.Context(), f)
			if err != nil {
				return err
			}
			return printEncoding(cmd.OutOrStdout(), output, enc)
		},
	}
	ff = addFormFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "Output format: table or json")
	return cmd
}
