package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"whisperwatch/internal/engine"
	"whisperwatch/internal/logging"
	"whisperwatch/internal/notifications"
	"whisperwatch/internal/queue"
	"whisperwatch/internal/subtitles"
	"whisperwatch/internal/workflow"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var outputDir string
	var model string

	cmd := &cobra.Command{
		Use:   "transcribe <media>...",
		Short: "Transcribe media files and write SubRip subtitles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(outputDir) == "" {
				outputDir = cfg.OutputDir
			}
			if strings.TrimSpace(model) == "" {
				model = cfg.Model
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve path %q: %w", arg, err)
				}
				paths = append(paths, abs)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := queue.NewRegistry()
			notifier := notifications.NewService(logger)
			notifier.Register(newConsoleListener(cmd.OutOrStdout()))

			backend := engine.NewWhisperCPP(cfg.Whisper.Binary, cfg.Whisper.Language)
			transcriber := engine.NewService(cfg, backend, logger)
			manager := workflow.NewManager(registry, notifier, transcriber, subtitles.NewWriter(), logger)

			created, err := manager.Submit(paths, outputDir, model)
			if err != nil {
				return err
			}
			if len(created) == 0 {
				return errors.New("no usable media files in the arguments")
			}

			if err := manager.Start(runCtx); err != nil {
				return err
			}
			manager.Wait()
			manager.Stop()

			jobs := manager.Snapshot()
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), renderJobsTable(jobs))

			if err := runCtx.Err(); err != nil {
				return err
			}
			for _, job := range jobs {
				if job.Status == queue.StatusFailed {
					return fmt.Errorf("%d of %d jobs failed", countFailed(jobs), len(jobs))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for subtitle files (defaults to the configured output_dir)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to transcribe with (defaults to the configured model)")
	return cmd
}

func countFailed(jobs []queue.Job) int {
	failed := 0
	for _, job := range jobs {
		if job.Status == queue.StatusFailed {
			failed++
		}
	}
	return failed
}
