package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subforge/internal/pipeline"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check external tools and scratch space",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			checks := pipeline.Preflight(cfg)
			rows := make([][]string, 0, len(checks))
			for _, check := range checks {
				rows = append(rows, []string{check.Name, check.StateLabel(), check.Detail})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "State", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if !pipeline.Ready(checks) {
				return fmt.Errorf("preflight failed; fix the checks above before running the daemon")
			}
			fmt.Fprintln(out, "All preflight checks passed")
			return nil
		},
	}
}
