package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/indexer"
	"github.com/nao1215/extlinks/internal/report"
	"github.com/nao1215/extlinks/internal/state"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [vault]",
		Short: "Keep the link list up to date while notes change",
		Long: `Watch performs a full scan, then follows changes in the vault and
updates the link list incrementally: an edited note is re-read, a
deleted note is dropped and a renamed note keeps its links without
being read again. The list is printed again after every change.

The state is saved when watch stops (Ctrl+C or SIGTERM).

Examples:
  # Watch a vault and print the tree after every change
  extlinks watch ~/notes

  # Keep an HTML page up to date
  extlinks watch -f html -o ~/links.html ~/notes`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchCmd,
	}

	addOutputFlags(cmd)
	addScanFlags(cmd)

	return cmd
}

// runWatchCmd executes the watch command.
func runWatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	applyOutputFlags(cmd, cfg)
	if err := applyScanFlags(cmd, cfg); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runWatch(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runWatch scans the vault, then applies change events until ctx is done.
func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	persist, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(persist, logger)

	renderer, err := newWatchRenderer(cfg, stdout)
	if err != nil {
		return err
	}

	ss, err := openSession(ctx, cfg, persist, logger, indexer.WithRenderer(renderer))
	if err != nil {
		return err
	}
	return watchSession(ctx, ss, persist, cfg, logger, stderr)
}

// watchSession reconciles ss with the vault and applies change events until
// ctx is done. The state is saved once on the way out.
func watchSession(ctx context.Context, ss *session, persist state.Store, cfg *config.Config, logger *slog.Logger, stderr io.Writer) error {
	// The watcher starts before the rescan so that an edit made while notes
	// are being read still arrives as an event. Replaying an edit the rescan
	// already saw is harmless.
	events, err := ss.vault.Watch(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := ss.vault.Close(); err != nil {
			logger.Warn("failed to stop watcher", "error", err)
		}
	}()

	if err := ss.rescan(ctx, cfg, logger, stderr); err != nil {
		return err
	}
	defer func() {
		// The shutdown save must run even though ctx is already cancelled.
		state.SaveOrWarn(context.WithoutCancel(ctx), persist, ss.syncer.State(), logger)
	}()
	logger.Info("watching for changes", "vault", ss.vault.Root())

	err = ss.syncer.Run(ctx, events)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newWatchRenderer returns the renderer used while watching. Output to a
// file is rewritten in full on every change; output to stdout is appended.
func newWatchRenderer(cfg *config.Config, stdout io.Writer) (*fileRenderer, error) {
	if _, err := report.NewRenderer(cfg.Format, io.Discard); err != nil {
		return nil, err
	}
	return &fileRenderer{cfg: cfg, stdout: stdout}, nil
}
