package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/extlinks/internal/config"
	"github.com/nao1215/extlinks/internal/filter"
	"github.com/nao1215/extlinks/internal/indexer"
	"github.com/nao1215/extlinks/internal/model"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewExcludeCmd creates the exclude command.
func NewExcludeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exclude [vault]",
		Short: "Show or change which notes and links are ignored",
		Long: `Exclude edits the saved exclusion settings:

  --path     a regular expression matched anywhere in a note's path
             (relative to the vault, with / separators). Anchor it to
             exclude a folder, e.g. '^private/'.
  --url      a regular expression matched against each link; repeat the
             flag for several patterns. Replaces the saved URL patterns.
  --url-file a file with one URL pattern per line (blank lines ignored);
             use - for standard input.
  --clear    remove every exclusion before applying the other flags.

All patterns are checked before anything is saved. A valid change is saved
and the vault is rescanned so the link list matches the new settings.
Without flags, the current settings are printed.

Examples:
  extlinks exclude --path '^(private|archive)/' ~/notes
  extlinks exclude --url '^https://localhost' --url '\.internal/' ~/notes
  extlinks exclude --clear ~/notes`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExcludeCmd,
	}

	cmd.Flags().String("path", "", "Path exclusion pattern (empty string removes it)")
	cmd.Flags().StringArray("url", nil, "URL exclusion pattern (repeatable)")
	cmd.Flags().String("url-file", "", "File with one URL exclusion pattern per line ('-' for stdin)")
	cmd.Flags().Bool("clear", false, "Remove all exclusions first")
	addScanFlags(cmd)

	return cmd
}

// exclusionEdit describes the requested change.
type exclusionEdit struct {
	clear    bool
	setPath  bool
	path     string
	setURLs  bool
	urls     []string
	modifies bool
}

// apply returns current with the edit applied.
func (e exclusionEdit) apply(current model.Exclusions) model.Exclusions {
	next := current.Clone()
	if e.clear {
		next = model.Exclusions{URLPatterns: []string{}}
	}
	if e.setPath {
		next.PathPattern = e.path
	}
	if e.setURLs {
		next.URLPatterns = append([]string{}, e.urls...)
	}
	return next
}

// readExclusionEdit collects the exclusion flags.
func readExclusionEdit(cmd *cobra.Command) (exclusionEdit, error) {
	var (
		e   exclusionEdit
		err error
	)

	e.clear, err = cmd.Flags().GetBool("clear")
	if err != nil {
		return e, err
	}

	if cmd.Flags().Changed("path") {
		e.setPath = true
		e.path, err = cmd.Flags().GetString("path")
		if err != nil {
			return e, err
		}
	}

	if cmd.Flags().Changed("url") {
		e.setURLs = true
		e.urls, err = cmd.Flags().GetStringArray("url")
		if err != nil {
			return e, err
		}
	}

	urlFile, err := cmd.Flags().GetString("url-file")
	if err != nil {
		return e, err
	}
	if urlFile != "" {
		text, err := readPatternFile(urlFile, cmd.InOrStdin())
		if err != nil {
			return e, err
		}
		e.setURLs = true
		e.urls = append(e.urls, config.ParsePatternLines(text)...)
	}

	e.modifies = e.clear || e.setPath || e.setURLs
	return e, nil
}

// readPatternFile reads a pattern file, or stdin for "-".
func readPatternFile(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // User-provided pattern file is intentional
	}
	if err != nil {
		return "", fmt.Errorf("failed to read pattern file: %w", err)
	}
	return string(data), nil
}

// runExcludeCmd executes the exclude command.
func runExcludeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := applyScanFlags(cmd, cfg); err != nil {
		return err
	}

	edit, err := readExclusionEdit(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd, cfg.Verbose)
	slog.SetDefault(logger)

	if !edit.modifies {
		return showExclusions(cmd.Context(), cfg, logger, cmd.OutOrStdout())
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	return runExclude(ctx, cfg, edit, logger, cmd.OutOrStdout())
}

// showExclusions prints the saved exclusion settings.
func showExclusions(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	persist, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(persist, logger)

	return printExclusions(stdout, loadState(ctx, persist, cfg, logger).Exclusions)
}

// runExclude validates and saves new exclusion settings, then rescans.
// An invalid pattern aborts before anything is saved or rescanned.
func runExclude(ctx context.Context, cfg *config.Config, edit exclusionEdit, logger *slog.Logger, stdout io.Writer) error {
	persist, err := openStateStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(persist, logger)

	saved := loadState(ctx, persist, cfg, logger)
	next := edit.apply(saved.Exclusions)
	if err := filter.Validate(next); err != nil {
		return fmt.Errorf("invalid exclusion settings: %w", err)
	}

	vault, err := openVault(cfg, logger)
	if err != nil {
		return err
	}

	// The saved exclusions may be the very thing being repaired, so the
	// synchronizer starts from an empty rule set rather than from them.
	syncer := indexer.New(vault,
		indexer.WithLogger(logger),
		indexer.WithConcurrency(cfg.Concurrency),
		indexer.WithFreshRescan(cfg.FreshRescan),
	)

	res, err := syncer.SetExclusions(ctx, next)
	if err != nil {
		return err
	}
	if err := persist.Save(ctx, syncer.State()); err != nil {
		return err
	}

	if err := printExclusions(stdout, next); err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "Rescanned %d notes: %d with links, %d links (%d excluded, %d unreadable)\n",
		res.Documents, res.Cached, res.Links, res.Excluded, res.Failed)
	return err
}

// printExclusions writes ex as YAML, the same shape as the config file.
func printExclusions(w io.Writer, ex model.Exclusions) error {
	if ex.IsZero() {
		_, err := fmt.Fprintln(w, "No exclusions configured.")
		return err
	}
	data, err := yaml.Marshal(ex)
	if err != nil {
		return fmt.Errorf("failed to format exclusions: %w", err)
	}
	_, err = w.Write(data)
	return err
}
