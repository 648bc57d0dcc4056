package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seantiz/frontier/internal/model"
	"github.com/seantiz/frontier/internal/sweep"
)

func newSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Launch and control benchmark sweeps",
	}

	cmd.AddCommand(newSweepLaunchCommand())
	cmd.AddCommand(newSweepStatusCommand())
	cmd.AddCommand(newSweepWatchCommand())
	cmd.AddCommand(newSweepControlCommand(model.ActionPause, "Pause a running sweep"))
	cmd.AddCommand(newSweepControlCommand(model.ActionResume, "Resume a paused sweep"))
	cmd.AddCommand(newSweepControlCommand(model.ActionCancel, "Cancel a running or paused sweep"))

	return cmd
}

func newSweepLaunchCommand() *cobra.Command {
	var (
		req   sweep.LaunchRequest
		seed  int64
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "launch [model-id...]",
		Short: "Launch a sweep over the given models (default: every registered model)",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.ModelIDs = args
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}

			c := apiClient(cmd)
			id, err := c.LaunchSweep(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)

			if !watch {
				return nil
			}
			return c.Watch(cmd.Context(), id, func(snap model.Snapshot) error {
				printProgressLine(cmd.ErrOrStderr(), snap)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&req.Concurrency, "concurrency", 0, "global concurrency limit (server default when 0)")
	cmd.Flags().IntVar(&req.ProviderConcurrency, "provider-concurrency", 0, "per-provider concurrency limit (server default when 0)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "scenario seed (server default when unset)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "stream progress until the sweep ends")

	return cmd
}

func newSweepStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status [sweep-id]",
		Short: "Show one sweep, or list all sweeps",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(cmd)
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				snaps, err := c.Sweeps(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(out, snaps)
				}
				printSweepList(out, snaps)
				return nil
			}

			snap, err := c.Sweep(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(out, snap)
			}
			printSnapshot(out, snap)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newSweepWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <sweep-id>",
		Short: "Stream a sweep's progress until it ends",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var last model.Snapshot
			err := apiClient(cmd).Watch(cmd.Context(), args[0], func(snap model.Snapshot) error {
				printProgressLine(cmd.ErrOrStderr(), snap)
				last = snap
				return nil
			})
			if err != nil {
				return err
			}
			printSnapshot(cmd.OutOrStdout(), last)
			return nil
		},
	}
}

func newSweepControlCommand(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <sweep-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(cmd)
			var (
				snap model.Snapshot
				err  error
			)
			switch action {
			case model.ActionPause:
				snap, err = c.Pause(cmd.Context(), args[0])
			case model.ActionResume:
				snap, err = c.Resume(cmd.Context(), args[0])
			default:
				snap, err = c.Cancel(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", snap.SweepID, snap.ControlStatus)
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProgressLine(w io.Writer, snap model.Snapshot) {
	fmt.Fprintf(w, "%s %-9s completed=%d failed=%d running=%d pending=%d total=%d\n",
		snap.SweepID, snap.ControlStatus, snap.Completed, snap.Failed, snap.Running, snap.Pending, snap.Total)
}

func printSweepList(w io.Writer, snaps []model.Snapshot) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SWEEP\tSTATUS\tCOMPLETED\tFAILED\tTOTAL\tCREATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			s.SweepID, s.ControlStatus, s.Completed, s.Failed, s.Total, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

func printSnapshot(w io.Writer, snap model.Snapshot) {
	fmt.Fprintf(w, "Sweep %s (%s)\n", snap.SweepID, snap.ControlStatus)
	fmt.Fprintf(w, "Seed %d, suite %s\n\n", snap.Seed, snap.SuiteDigest)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tPROVIDER\tSTATUS\tDONE\tACCURACY\tERRORS\tAVG LATENCY\tNOTE")
	for _, m := range snap.Models {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.1f%%\t%d\t%.0fms\t%s\n",
			m.ModelID, m.Provider, m.Status, m.ScenariosDone, m.Accuracy*100, m.Errors, m.AvgLatencyMS, m.Error)
	}
	tw.Flush()
}
