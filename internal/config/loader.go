package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/extlinks/internal/model"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".extlinks"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .extlinks configuration file.
type File struct {
	// Vault is the default vault directory.
	Vault string `yaml:"vault,omitempty"`

	// Extensions overrides the document extensions.
	Extensions []string `yaml:"extensions,omitempty"`

	// ExcludePathRegex seeds the path exclusion pattern.
	ExcludePathRegex string `yaml:"excludePathRegex,omitempty"`

	// ExcludePatterns seeds the URL exclusion patterns.
	ExcludePatterns []string `yaml:"excludePatterns,omitempty"`

	// Format is the default output format.
	Format string `yaml:"format,omitempty"`

	// Concurrency is the default rescan concurrency.
	Concurrency int `yaml:"concurrency,omitempty"`
}

// Exclusions returns the exclusion settings declared in the file.
func (f *File) Exclusions() model.Exclusions {
	if f == nil {
		return model.Exclusions{URLPatterns: []string{}}
	}
	patterns := append([]string{}, f.ExcludePatterns...)
	return model.Exclusions{
		PathPattern: f.ExcludePathRegex,
		URLPatterns: patterns,
	}
}

// LoadConfigFile loads the configuration from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .extlinks in the current directory
// 3. Look for .extlinks in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}

// ParsePatternLines splits multi-line pattern input into one pattern per
// line. Surrounding whitespace is trimmed and blank lines are dropped.
func ParsePatternLines(text string) []string {
	lines := strings.Split(text, "\n")
	patterns := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
