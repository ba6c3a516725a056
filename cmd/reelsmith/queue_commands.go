package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/queue"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the shot queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueEpisodesCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueSkipCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List shots in the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				var statuses []queue.ShotStatus
				for _, raw := range strings.Split(statusFilter, ",") {
					raw = strings.TrimSpace(raw)
					if raw != "" {
						statuses = append(statuses, queue.ShotStatus(raw))
					}
				}
				shots, err := store.ListShots(cmd.Context(), statuses...)
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(shots) == 0 {
					fmt.Fprintln(stdout, "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(shots))
				for _, shot := range shots {
					score := ""
					if shot.QualityScore > 0 {
						score = fmt.Sprintf("%.2f", shot.QualityScore)
					}
					detail := shot.ErrorMessage
					if shot.NeedsReview {
						detail = shot.ReviewReason
					}
					rows = append(rows, []string{
						strconv.FormatInt(shot.ID, 10),
						strconv.FormatInt(shot.SceneID, 10),
						strconv.Itoa(shot.Seq),
						string(shot.Status),
						shot.Engine,
						score,
						strconv.Itoa(shot.Attempts),
						truncate(detail, 40),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Scene", "Seq", "Status", "Engine", "Score", "Attempts", "Detail"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Comma-separated status filter (e.g. failed,review)")
	return cmd
}

func newQueueEpisodesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "episodes",
		Short: "List episodes and their scenes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *queue.Store) error {
				episodes, err := store.ListEpisodes(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				if len(episodes) == 0 {
					fmt.Fprintln(stdout, "No episodes")
					return nil
				}

				for _, episode := range episodes {
					fmt.Fprintf(stdout, "Episode %d: %s [%s]\n", episode.ID, episode.Title, episode.Status)
					scenes, err := store.ScenesByEpisode(cmd.Context(), episode.ID)
					if err != nil {
						return err
					}
					for _, scene := range scenes {
						duration := ""
						if scene.DurationSeconds > 0 {
							duration = fmt.Sprintf(" (%.1fs)", scene.DurationSeconds)
						}
						fmt.Fprintf(stdout, "  Scene %d: %s [%s]%s\n", scene.Seq, scene.Title, scene.Status, duration)
					}
				}
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <shot-id> [shot-id...]",
		Short: "Requeue failed or review shots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				retried, err := store.RetryFailedShots(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d shot(s)\n", retried)
				return nil
			})
		},
	}
}

func newQueueSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <shot-id>",
		Short: "Skip a shot; its scene assembles without it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *queue.Store) error {
				shot, err := store.GetShot(cmd.Context(), ids[0])
				if err != nil {
					return err
				}
				if shot == nil {
					return fmt.Errorf("shot %d not found", ids[0])
				}
				if shot.IsProcessing() {
					return fmt.Errorf("shot %d is currently processing", shot.ID)
				}
				shot.Status = queue.ShotSkipped
				shot.SetProgress("Skipped", "Skipped by operator", 100)
				if err := store.UpdateShot(cmd.Context(), shot); err != nil {
					return err
				}
				if _, err := store.RefreshSceneStatus(cmd.Context(), shot.SceneID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Shot %d skipped\n", shot.ID)
				return nil
			})
		},
	}
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid shot id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
