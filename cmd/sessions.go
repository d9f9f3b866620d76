package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/albarami/udc-sub000/internal/model"
	"github.com/albarami/udc-sub000/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect analysis session history",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		complexity, _ := cmd.Flags().GetString("complexity")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		records, err := st.ListSessions(ctx, store.SessionFilter{
			Complexity: model.Complexity(complexity),
			Status:     model.VerificationStatus(status),
			Limit:      limit,
		})
		if err != nil {
			return eris.Wrap(err, "sessions list")
		}

		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No sessions found.")
			return nil
		}

		formatSessionsList(os.Stdout, records)
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the full state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		state, err := st.GetSession(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "sessions show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

func formatSessionsList(w io.Writer, records []store.SessionRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMPLEXITY\tSTATUS\tCONFIDENCE\tCALLS\tCOST\tCREATED\tQUERY")
	for _, r := range records {
		query := r.Query
		if len(query) > 48 {
			query = query[:45] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t$%.4f\t%s\t%s\n",
			r.SessionID, r.Complexity, r.Status, r.Confidence,
			r.LLMCalls, r.CostUSD, r.CreatedAt.Format("2006-01-02 15:04"), query)
	}
	tw.Flush()
}

func init() {
	sessionsListCmd.Flags().String("complexity", "", "filter by complexity tier")
	sessionsListCmd.Flags().String("status", "", "filter by verification status")
	sessionsListCmd.Flags().Int("limit", 20, "maximum sessions to list")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	rootCmd.AddCommand(sessionsCmd)
}
