package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/albarami/udc-sub000/internal/model"
)

var (
	analyzeJSON     bool
	analyzeProgress bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <query>",
	Short: "Run one analysis session for a business query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		query := strings.Join(args, " ")

		eng, err := initEngine()
		if err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		events, err := eng.Analyze(ctx, query)
		if err != nil {
			return eris.Wrap(err, "start session")
		}

		var final *model.State
		for ev := range events {
			if analyzeProgress && ev.Stage != "session" {
				fmt.Fprintf(os.Stderr, "[%s] %s\n", ev.Type, ev.Stage)
			}
			if ev.State != nil {
				final = ev.State
			}
		}
		if final == nil {
			return eris.New("session produced no result")
		}

		if err := st.SaveSession(ctx, final); err != nil {
			zap.L().Warn("failed to save session", zap.Error(err))
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(final)
		}

		fmt.Println(final.FinalSynthesis)
		fmt.Printf("\n--\nsession %s | complexity %s | confidence %.2f | %d LLM calls | $%.4f | %.1fs\n",
			final.SessionID, final.Complexity, final.ConfidenceScore,
			final.LLMCalls, final.CumulativeCost, final.TotalTimeSeconds)
		if len(final.Warnings) > 0 {
			fmt.Printf("warnings: %s\n", strings.Join(final.Warnings, "; "))
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full session state as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeProgress, "progress", false, "print stage progress to stderr")
	rootCmd.AddCommand(analyzeCmd)
}
