package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/queue"
)

// shotStatusOrder fixes the pipeline ordering for status output.
var shotStatusOrder = []queue.ShotStatus{
	queue.ShotPlanned,
	queue.ShotSelecting,
	queue.ShotSelected,
	queue.ShotGenerating,
	queue.ShotGenerated,
	queue.ShotRefining,
	queue.ShotRefined,
	queue.ShotPostprocessing,
	queue.ShotPostprocessed,
	queue.ShotScoring,
	queue.ShotAccepted,
	queue.ShotReview,
	queue.ShotFailed,
	queue.ShotSkipped,
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}

			status, statusErr := client.Status(cmd.Context())
			if statusErr != nil {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not reachable", colorize))
			} else if status.Running {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "running", colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "workflow stopped", colorize))
			}
			if statusErr == nil && status.LastError != "" {
				fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Dependencies", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, st := range deps.CheckBinaries(deps.Requirements(cfg)) {
				kind := statusOK
				detail := fmt.Sprintf("Ready (command: %s)", st.Command)
				if !st.Available {
					detail = st.Detail
					kind = statusError
					if st.Optional {
						kind = statusWarn
					}
				}
				fmt.Fprintln(stdout, renderStatusLine(st.Name, kind, detail, colorize))
			}
			fmt.Fprintln(stdout)

			if statusErr == nil && len(status.StageHealth) > 0 {
				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(stdout, line)
				}
				names := make([]string, 0, len(status.StageHealth))
				for name := range status.StageHealth {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					health := status.StageHealth[name]
					if health.Ready {
						fmt.Fprintln(stdout, renderStatusLine(name, statusOK, "ready", colorize))
					} else {
						fmt.Fprintln(stdout, renderStatusLine(name, statusWarn, health.Detail, colorize))
					}
				}
				fmt.Fprintln(stdout)
			}

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}

			stats, err := queueStats(cmd, ctx, client, statusErr == nil, status)
			if err != nil {
				return err
			}
			rows := buildQueueStatusRows(stats)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

// queueStats prefers the daemon's view, falling back to the store when the
// daemon is down.
func queueStats(cmd *cobra.Command, ctx *commandContext, client *apiClient, daemonUp bool, status *statusResponse) (map[string]int, error) {
	if daemonUp {
		return status.QueueStats, nil
	}
	var stats map[string]int
	err := ctx.withStore(func(store *queue.Store) error {
		raw, err := store.Stats(cmd.Context())
		if err != nil {
			return err
		}
		stats = make(map[string]int, len(raw))
		for st, count := range raw {
			stats[string(st)] = count
		}
		return nil
	})
	return stats, err
}

func buildQueueStatusRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, status := range shotStatusOrder {
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{string(status), fmt.Sprintf("%d", count)})
	}
	return rows
}
