package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/logging"
	"reelsmith/internal/queue"
	"reelsmith/internal/story"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <manifest.yaml>",
		Short: "Import a story manifest as a new episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := story.LoadManifest(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *queue.Store) error {
				importer := story.NewImporter(store, logging.NewNop())
				episode, err := importer.Import(cmd.Context(), manifest)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Imported %q as episode %d (%d scenes)\n", manifest.Title, episode.ID, len(manifest.Scenes))
				fmt.Fprintln(stdout, "Shots are queued; a running daemon will pick them up")
				return nil
			})
		},
	}
}
