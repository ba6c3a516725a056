package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			for _, st := range statuses {
				kind := statusOK
				detail := fmt.Sprintf("Ready (command: %s)", st.Command)
				if !st.Available {
					detail = st.Detail
					kind = statusError
					if st.Optional {
						kind = statusWarn
						detail += " (optional; pipeline degrades without it)"
					}
				}
				fmt.Fprintln(stdout, renderStatusLine(st.Name, kind, detail, colorize))
			}

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
