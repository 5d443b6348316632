package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/heartrisk/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded predictions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")
		prune, _ := cmd.Flags().GetInt("prune")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// Listing works even when recording is turned off.
		cfg.History = true
		s, err := openHistory(cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		ctx := cmd.Context()
		repo := s.EventRepo()

		if cmd.Flags().Changed("prune") {
			if prune < 0 {
				return fmt.Errorf("--prune must not be negative")
			}
			n, err := repo.Prune(ctx, prune)
			if err != nil {
				return fmt.Errorf("prune events: %w", err)
			}
			fmt.Fprintf(out, "Deleted %d events.\n", n)
			return nil
		}

		events, err := repo.QueryPredictions(ctx, store.QueryOpts{SessionID: sessionID, Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		if len(events) == 0 {
			fmt.Fprintln(out, "No predictions found.")
			return nil
		}

		// Header.
		fmt.Fprintf(out, "%-6s  %-19s  %-10s  %-9s  %-7s  %s\n",
			"Seq", "Timestamp", "Session", "P(event)", "Risk", "Input")
		fmt.Fprintln(out, strings.Repeat("─", 100))

		for _, e := range events {
			risk, prob := "low", fmt.Sprintf("%.3f", e.ProbEvent)
			switch {
			case !e.Success:
				risk, prob = "failed", "-"
			case e.HighRisk:
				risk = "high"
			}
			sid := e.SessionID
			if len(sid) > 10 {
				sid = sid[:10]
			}
			fmt.Fprintf(out, "%-6d  %-19s  %-10s  %-9s  %-7s  %s\n",
				e.Sequence,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				sid,
				prob,
				risk,
				e.Features,
			)
			if !e.Success && e.ErrorMessage != "" {
				fmt.Fprintf(out, "        %s\n", e.ErrorMessage)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of events to show (0 = all)")
	historyCmd.Flags().String("session", "", "Only show events of this session")
	historyCmd.Flags().Int("prune", 0, "Delete all but the N most recent events instead of listing")
}
