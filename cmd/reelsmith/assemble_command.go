package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsmith/internal/queue"
)

func newAssembleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble <episode-id>",
		Short: "Queue an episode for final assembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid episode id %q", args[0])
			}

			stdout := cmd.OutOrStdout()

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.AssembleEpisode(cmd.Context(), id); err == nil {
				fmt.Fprintf(stdout, "Episode %d queued for assembly\n", id)
				return nil
			}

			// Daemon unreachable; mark the episode directly so the next
			// daemon run picks it up.
			return ctx.withStore(func(store *queue.Store) error {
				episode, err := store.GetEpisode(cmd.Context(), id)
				if err != nil {
					return err
				}
				if episode == nil {
					return fmt.Errorf("episode %d not found", id)
				}
				episode.Status = queue.EpisodeAssembling
				episode.ErrorMessage = ""
				if err := store.UpdateEpisode(cmd.Context(), episode); err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Episode %d marked for assembly; start the daemon to process it\n", id)
				return nil
			})
		},
	}
}
