package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoVault is returned when no vault directory is given on the command
	// line or in the configuration file.
	ErrNoVault = errors.New("no vault specified: provide a directory or set vault in .extlinks")

	// ErrInvalidConcurrency is returned when the concurrency is not positive.
	// A rescan with zero workers would never read a document.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrUnknownFormat is returned when the output format is not supported.
	ErrUnknownFormat = errors.New("unknown output format: use text, markdown, html or json")

	// ErrNoExtensions is returned when the extension list is empty, which
	// would make every vault look empty.
	ErrNoExtensions = errors.New("no document extensions configured")

	// ErrInvalidRenamePairWindow is returned when the rename pairing window is
	// negative.
	ErrInvalidRenamePairWindow = errors.New("invalid rename pair window: must be non-negative")
)
