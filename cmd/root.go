package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "advisor",
	Short: "Deliberative multi-agent business analysis",
	Long:  "Classifies a business query, extracts validated facts from retrieved documents, routes through specialist and deliberation stages by complexity, and synthesizes a cited executive report.",
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
