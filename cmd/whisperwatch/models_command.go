package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisperwatch/internal/engine"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models and their download state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			headers := []string{"Model", "Name", "Size", "Downloaded", "Description"}
			var rows [][]string
			for _, option := range engine.Models(cfg.Models.CacheDir) {
				downloaded := ""
				if option.Downloaded {
					downloaded = "yes"
				}
				marker := " "
				if option.ID == cfg.Model {
					marker = "*"
				}
				rows = append(rows, []string{
					marker + " " + option.ID,
					option.Name,
					option.SizeLabel,
					downloaded,
					option.Description,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft}))
			fmt.Fprintf(out, "* configured model; any Hugging Face repository reference (owner/repo) also works\n")
			return nil
		},
	}
}
