package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/conjoint-cli/internal/pipeline"
	"github.com/sells-group/conjoint-cli/internal/report"
)

var (
	fitFormat string
	fitQuiet  bool
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the configured models and compute marginal means",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := pipeline.New(cfg).Fit(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "fit")
		}
		if fitQuiet {
			return nil
		}

		format := report.ParseFormat(fitFormat)
		out := cmd.OutOrStdout()
		for _, m := range res.Models {
			fmt.Fprintln(out, report.ModelSummary(m, format))
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, report.MarginalMeansSummary(res.MarginalMeans, format))
		return nil
	},
}

func init() {
	fitCmd.Flags().StringVar(&fitFormat, "format", "ascii", "summary format: ascii or markdown")
	fitCmd.Flags().BoolVar(&fitQuiet, "quiet", false, "do not print model summaries")
	rootCmd.AddCommand(fitCmd)
}
