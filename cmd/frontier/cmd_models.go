package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seantiz/frontier/internal/model"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the model registry",
	}

	cmd.AddCommand(newModelsListCommand())
	cmd.AddCommand(newModelsAddCommand())
	cmd.AddCommand(newModelsDeleteCommand())

	return cmd
}

func newModelsListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := apiClient(cmd).Models(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, models)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPROVIDER\tNAME\tREASONING\tIN $/MTOK\tOUT $/MTOK")
			for _, m := range models {
				reasoning := "-"
				if m.Reasoning {
					reasoning = m.ReasoningEffort
					if reasoning == "" {
						reasoning = "default"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%.2f\n",
					m.ID, m.Provider, m.Name, reasoning, m.InputCostPerMTok, m.OutputCostPerMTok)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newModelsAddCommand() *cobra.Command {
	var (
		m           model.Model
		temperature float64
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m.ID = args[0]
			if m.Name == "" {
				m.Name = m.ID
			}
			if cmd.Flags().Changed("temperature") {
				m.Temperature = &temperature
			}
			if m.ReasoningEffort != "" {
				m.Reasoning = true
			}

			created, err := apiClient(cmd).AddModel(cmd.Context(), m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", created.ID, created.Provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&m.Provider, "provider", "", "provider name from the providers file")
	cmd.Flags().StringVar(&m.Name, "name", "", "provider-native model name (defaults to the id)")
	cmd.Flags().BoolVar(&m.Reasoning, "reasoning", false, "model is a reasoning model")
	cmd.Flags().StringVar(&m.ReasoningEffort, "effort", "", "reasoning effort: minimal, low, medium or high")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().IntVar(&m.MaxOutputTokens, "max-output-tokens", 0, "output token limit")
	cmd.Flags().Float64Var(&m.InputCostPerMTok, "input-cost", 0, "USD per million input tokens")
	cmd.Flags().Float64Var(&m.OutputCostPerMTok, "output-cost", 0, "USD per million output tokens")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func newModelsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a model from the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient(cmd).DeleteModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newLeaderboardCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the leaderboard of public evaluation records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := apiClient(cmd).Leaderboard(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tMODEL\tPROVIDER\tBEST\tLATEST\tRUNS\tCOST")
			for i, e := range entries {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f%%\t%.1f%%\t%d\t$%.4f\n",
					i+1, e.ModelID, e.Provider, e.BestAccuracy*100, e.LatestAccuracy*100, e.Runs, e.TotalCostUSD)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
