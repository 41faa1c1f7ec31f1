package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"whisperwatch/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the environment for transcription readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			headers := []string{"Check", "Status", "Detail"}
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				status := "FAIL"
				if result.Passed {
					status = "ok"
				}
				rows = append(rows, []string{result.Name, status, result.Detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft}))
			if !preflight.AllPassed(results) {
				return errors.New("one or more preflight checks failed")
			}
			return nil
		},
	}
}
