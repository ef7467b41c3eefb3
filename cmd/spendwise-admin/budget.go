package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"spendwise/internal/assistant"
	"spendwise/internal/core"
	"spendwise/internal/worker"
)

func budgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect budgets",
	}
	cmd.AddCommand(budgetCheckCmd(a))
	return cmd
}

func budgetCheckCmd(a *app) *cobra.Command {
	var (
		email       string
		month, year int
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "List a user's budgets that are near or over their limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			period := core.Period{Year: year, Month: month}
			if err := period.Validate(); err != nil {
				return err
			}
			user, err := a.store.GetUserByEmail(cmd.Context(), core.NormalizeEmail(email))
			if err != nil {
				return fmt.Errorf("find user %s: %w", email, err)
			}

			watcher := worker.NewBudgetWatcher(assistant.NewAggregator(a.store, a.store), a.logger)
			alerts, err := watcher.Check(cmd.Context(), user.ID, period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(alerts) == 0 {
				fmt.Fprintf(out, "All budgets on track for %s\n", period)
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tLIMIT\tSPENT\tSTATUS")
			for _, al := range alerts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", al.Category, core.FormatAmount(al.Amount), core.FormatAmount(al.Spent), al.Status)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (required)")
	cmd.Flags().IntVar(&year, "year", 0, "year (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("month")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}
