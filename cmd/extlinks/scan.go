package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/indexer"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/nao1215/extlinks/internal/report"
	"github.com/nao1215/extlinks/internal/state"
	"github.com/nao1215/extlinks/internal/store"
	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [vault]",
		Short: "Rescan a vault and print its external links",
		Long: `Scan reads every note in the vault, extracts its external links and
prints them grouped by note. The result is saved so that 'extlinks list'
and the next 'extlinks watch' start from it.

Examples:
  # Scan a vault and print a tree of links
  extlinks scan ~/notes

  # Write a Markdown report
  extlinks scan -f markdown -o links.md ~/notes

  # Show what changed since the last run
  extlinks scan --diff ~/notes

Configuration file (.extlinks) example:
  vault: ~/notes
  excludePathRegex: "^private/"
  excludePatterns:
    - '^https://localhost'`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScanCmd,
	}

	addOutputFlags(cmd)
	addScanFlags(cmd)

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
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

	return runScan(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runScan performs one full rescan, renders the result and saves the state.
func runScan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	persist, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(persist, logger)

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

	ss, err := openSession(ctx, cfg, persist, logger, indexer.WithRenderer(renderer))
	if err != nil {
		return err
	}
	if err := ss.rescan(ctx, cfg, logger, stderr); err != nil {
		return err
	}

	state.SaveOrWarn(ctx, persist, ss.syncer.State(), logger)
	return nil
}

// session is a vault with a synchronizer restored from the saved state,
// not yet reconciled with the notes on disk.
type session struct {
	syncer *indexer.Synchronizer
	vault  *store.Vault
	saved  *model.State
}

// openSession opens the vault and restores the saved state into a new
// synchronizer.
func openSession(ctx context.Context, cfg *config.Config, s state.Store, logger *slog.Logger, opts ...indexer.Option) (*session, error) {
	vault, err := openVault(cfg, logger)
	if err != nil {
		return nil, err
	}

	saved := loadState(ctx, s, cfg, logger)
	syncer, err := newSynchronizer(vault, saved, cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	return &session{syncer: syncer, vault: vault, saved: saved}, nil
}

// rescan performs the startup rescan. The drift since the saved state is
// written to stderr when requested.
func (ss *session) rescan(ctx context.Context, cfg *config.Config, logger *slog.Logger, stderr io.Writer) error {
	logger.Info("starting scan",
		"vault", ss.vault.Root(),
		"concurrency", cfg.Concurrency,
		"cached", ss.saved.LinkCache.Len(),
	)

	res, err := ss.syncer.FullRescan(ctx)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		logger.Warn("some notes could not be read", "count", res.Failed)
	}

	if cfg.ShowDrift {
		drift, err := report.DriftReport(ss.saved.LinkCache, ss.syncer.State().LinkCache)
		if err != nil {
			logger.Warn("failed to compute drift", "error", err)
		} else if drift == "" {
			fmt.Fprintln(stderr, "No changes since the last run.")
		} else {
			fmt.Fprint(stderr, drift)
		}
	}
	return nil
}
