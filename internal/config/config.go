package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/extlinks/internal/report"
	"github.com/nao1215/extlinks/internal/store"
)

// Default configuration values.
const (
	// DefaultFormat is the output format used when none is requested.
	DefaultFormat = report.FormatText

	// DefaultConcurrency of 8 parallel reads keeps a rescan of a few thousand
	// notes fast on an SSD without exhausting file descriptors.
	DefaultConcurrency = 8

	// DefaultRenamePairWindow is how long a rename waits for its matching
	// create notification before it is treated as a delete.
	DefaultRenamePairWindow = store.DefaultRenamePairWindow

	// AppName is the application name used for XDG directory paths.
	AppName = "extlinks"
)

// DefaultExtensions returns the document extensions indexed by default.
func DefaultExtensions() []string {
	return []string{store.DefaultExtension}
}

// Config holds all configuration options for extlinks.
// This struct is populated from the configuration file and CLI flags and
// passed through the application rather than kept in global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The exclusion settings are deliberately not part of it:
// they are persisted state, edited with `extlinks exclude`, and the config
// file only seeds them.
type Config struct {
	// Vault is the root directory of the document store.
	Vault string

	// Extensions lists the file extensions treated as documents.
	Extensions []string

	// Format is the output format: text, markdown, html or json.
	Format string

	// OutputFile is where rendered output is written. Empty means stdout.
	OutputFile string

	// Concurrency is the number of documents read in parallel during a full
	// rescan.
	Concurrency int

	// RenamePairWindow is how long the watcher waits to pair a rename with
	// the create that follows it.
	RenamePairWindow time.Duration

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ShowDrift prints what changed since the saved state after the startup
	// rescan.
	ShowDrift bool

	// FreshRescan makes full rescans bypass the content cache.
	FreshRescan bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .extlinks in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File holds the loaded configuration file, or nil if none was found.
	File *File

	// DBDir is the directory holding the SQLite state database.
	// Defaults to XDG data directory (~/.local/share/extlinks on Linux).
	DBDir string

	// StateFile, when set, stores state as a JSON file at this path instead
	// of in the SQLite database.
	StateFile string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because several defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Extensions:       DefaultExtensions(),
		Format:           DefaultFormat,
		Concurrency:      DefaultConcurrency,
		RenamePairWindow: DefaultRenamePairWindow,
		DBDir:            XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for extlinks.
// On Linux: ~/.local/share/extlinks
// On macOS: ~/Library/Application Support/extlinks
// On Windows: %LOCALAPPDATA%\extlinks
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ApplyFile copies the values set in f into c. Flags applied afterwards
// override them.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f
	if f.Vault != "" {
		c.Vault = f.Vault
	}
	if len(f.Extensions) > 0 {
		c.Extensions = append([]string(nil), f.Extensions...)
	}
	if f.Format != "" {
		c.Format = f.Format
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
}

// ValidateOutput checks only the rendering options. Commands that never
// touch the vault use it instead of Validate.
func (c *Config) ValidateOutput() error {
	if !report.IsFormat(c.Format) {
		return ErrUnknownFormat
	}
	return nil
}

// Validate checks if the configuration is valid.
// It returns the first specific error found.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
func (c *Config) Validate() error {
	if c.Vault == "" {
		return ErrNoVault
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if len(c.Extensions) == 0 {
		return ErrNoExtensions
	}

	if c.RenamePairWindow < 0 {
		return ErrInvalidRenamePairWindow
	}

	return c.ValidateOutput()
}
