package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/conjoint-cli/internal/pipeline"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean the raw export and write the wide and long tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTask(cmd, pipeline.New(cfg).CleanTask())
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the estimation table and figures from fitted models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runTask(cmd, pipeline.New(cfg).ReportTask())
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(reportCmd)
}
