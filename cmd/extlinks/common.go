package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/database"
	"github.com/nao1215/extlinks/internal/indexer"
	"github.com/nao1215/extlinks/internal/log"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/nao1215/extlinks/internal/state"
	"github.com/nao1215/extlinks/internal/store"
	"github.com/spf13/cobra"
)

// buildConfig creates a Config from the configuration file and the global
// flags. Command-specific flags are applied by each command afterwards.
// A positional argument, when present, is the vault directory.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently continue without one.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(f)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	cfg.StateFile, err = cmd.Flags().GetString("state")
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	if len(args) > 0 {
		cfg.Vault = args[0]
	}
	cfg.Vault = expandHome(cfg.Vault)

	return cfg, nil
}

// applyOutputFlags reads --format and --output when the command has them.
// Flags override the configuration file only when set explicitly.
func applyOutputFlags(cmd *cobra.Command, cfg *config.Config) {
	if f := cmd.Flags().Lookup("format"); f != nil && f.Changed {
		cfg.Format = f.Value.String()
	}
	if f := cmd.Flags().Lookup("output"); f != nil {
		cfg.OutputFile = f.Value.String()
	}
}

// applyScanFlags reads the rescan tuning flags shared by scan and watch.
func applyScanFlags(cmd *cobra.Command, cfg *config.Config) error {
	if f := cmd.Flags().Lookup("concurrency"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = n
	}
	var err error
	if cmd.Flags().Lookup("diff") != nil {
		cfg.ShowDrift, err = cmd.Flags().GetBool("diff")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Lookup("fresh") != nil {
		cfg.FreshRescan, err = cmd.Flags().GetBool("fresh")
		if err != nil {
			return err
		}
	}
	return nil
}

// addOutputFlags registers --format and --output.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: text, markdown, html or json")
	cmd.Flags().StringP("output", "o", "",
		"Write output to the specified file path (creates directories if needed)")
}

// addScanFlags registers the rescan tuning flags.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", config.DefaultConcurrency,
		"Number of notes read in parallel during a full rescan")
	cmd.Flags().Bool("diff", false,
		"Print what changed since the saved state (to stderr)")
	cmd.Flags().Bool("fresh", false,
		"Re-read every note from disk instead of trusting unchanged files")
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(p string) string {
	if p != "~" && !hasHomePrefix(p) {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}

func hasHomePrefix(p string) bool {
	return len(p) >= 2 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator)
}

// setupLogger creates the secure logger writing to the command's stderr.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	jsonLogs, err := cmd.Flags().GetBool("log-json")
	if err != nil {
		jsonLogs = false
	}
	if jsonLogs {
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose)
	}
	return log.NewSecureLogger(cmd.ErrOrStderr(), verbose)
}

// openStateStore opens the configured persistence backend.
func openStateStore(cfg *config.Config) (state.Store, error) {
	if cfg.StateFile != "" {
		return state.NewFileStore(expandHome(cfg.StateFile)), nil
	}
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, &model.PersistenceError{Op: "open", Err: err}
	}
	return db, nil
}

// loadState loads the saved state, seeding the exclusions from the
// configuration file while nothing was ever saved. Once saved, empty
// exclusions are the user's choice and stay empty.
func loadState(ctx context.Context, s state.Store, cfg *config.Config, logger *slog.Logger) *model.State {
	st := state.LoadOrDefault(ctx, s, logger)
	if !st.Saved && cfg.File != nil {
		if seed := cfg.File.Exclusions(); !seed.IsZero() {
			logger.Debug("seeding exclusions from config file",
				"excludePathRegex", seed.PathPattern,
				"excludePatterns", len(seed.URLPatterns),
			)
			st.Exclusions = seed
		}
	}
	return st
}

// openVault opens the configured vault directory.
func openVault(cfg *config.Config, logger *slog.Logger) (*store.Vault, error) {
	return store.NewVault(cfg.Vault,
		store.WithExtensions(cfg.Extensions...),
		store.WithRenamePairWindow(cfg.RenamePairWindow),
		store.WithVaultLogger(logger),
	)
}

// newSynchronizer creates a synchronizer for vault restored from st.
// Invalid saved exclusions are reported as a configuration error.
func newSynchronizer(vault store.Reader, st *model.State, cfg *config.Config, logger *slog.Logger, opts ...indexer.Option) (*indexer.Synchronizer, error) {
	opts = append([]indexer.Option{
		indexer.WithLogger(logger),
		indexer.WithConcurrency(cfg.Concurrency),
		indexer.WithFreshRescan(cfg.FreshRescan),
	}, opts...)

	s := indexer.New(vault, opts...)
	if err := s.Restore(st); err != nil {
		return nil, fmt.Errorf("saved exclusion settings are invalid (fix them with 'extlinks exclude'): %w", err)
	}
	return s, nil
}

// openOutput returns the destination for rendered output and a function
// that closes it.
func openOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func() error, error) {
	if cfg.OutputFile == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(cfg.OutputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Links may carry access tokens, so the file is private to the owner.
	f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// closeStore closes s and logs a failure.
func closeStore(s state.Store, logger *slog.Logger) {
	if err := s.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		logger.Warn("failed to close state store", "error", err)
	}
}
