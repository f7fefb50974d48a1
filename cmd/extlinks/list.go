package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/report"
	"github.com/nao1215/extlinks/internal/view"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the saved link list without reading any note",
		Long: `List prints the link list saved by the last scan or watch. No note is
read, so the output may be stale; run 'extlinks scan' to refresh it.

Examples:
  extlinks list
  extlinks list -f json | jq '.summary'`,
		Args: cobra.NoArgs,
		RunE: runListCmd,
	}

	addOutputFlags(cmd)

	return cmd
}

// runListCmd executes the list command.
func runListCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	applyOutputFlags(cmd, cfg)

	if err := cfg.ValidateOutput(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	return runList(cmd.Context(), cfg, logger, cmd.OutOrStdout())
}

// runList renders the persisted cache.
func runList(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	persist, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(persist, logger)

	st := loadState(ctx, persist, cfg, logger)

	out, closeOut, err := openOutput(cfg, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeOut(); err != nil {
			logger.Warn("failed to close output", "error", err)
		}
	}()

	renderer, err := report.NewRenderer(cfg.Format, out)
	if err != nil {
		return err
	}
	return renderer.Render(view.Project(st.LinkCache))
}
