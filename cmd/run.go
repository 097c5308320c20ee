package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/pipeline"
)

var runForce bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run clean, fit and report, skipping tasks whose outputs are up to date",
	RunE: func(cmd *cobra.Command, _ []string) error {
		results, err := pipeline.New(cfg).Run(cmd.Context(), runForce)
		for _, r := range results {
			zap.L().Info("task finished",
				zap.String("task", r.Name),
				zap.String("status", string(r.Status)),
				zap.Int64("duration_ms", r.Duration),
			)
		}
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}
		return nil
	},
}

// runTask executes a single task unconditionally.
func runTask(cmd *cobra.Command, t pipeline.Task) error {
	if _, err := (pipeline.Runner{Force: true}).Run(cmd.Context(), []pipeline.Task{t}); err != nil {
		return eris.Wrapf(err, "%s", t.Name)
	}
	return nil
}

func init() {
	runCmd.Flags().BoolVar(&runForce, "force", false, "rerun every task even when its outputs are up to date")
	rootCmd.AddCommand(runCmd)
}
