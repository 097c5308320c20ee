package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/conjoint-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "conjoint-cli",
	Short: "Conjoint survey analysis pipeline",
	Long:  "Cleans a raw conjoint survey export, reshapes it to one row per rated package, fits linear probability models with respondent-clustered errors and renders tables and figures.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
