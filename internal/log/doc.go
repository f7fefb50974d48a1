// Package log builds the slog loggers used by extlinks. Every logger
// passes its records through SecureHandler, which masks secrets before
// they are written.
//
// Two output shapes are offered: text for a terminal (NewSecureLogger) and
// JSON for log collectors (NewSecureJSONLogger). Verbose mode lowers the
// level from Warn to Debug.
//
// # Security Features
//
// Notes often contain links that carry credentials: share links with a
// token query parameter, signed download URLs, or user:password@host
// forms. extlinks logs links while indexing, so the SecureHandler rewrites
// such values before they reach the output:
//
//	https://example.com/doc?token=abc&page=2
//	-> https://example.com/doc?token=***REDACTED***&page=2
//
// Attributes whose key names a secret (password, token, cookie, ...) are
// masked entirely, as are values that look like bearer tokens or JWTs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
//	logger.Debug("document updated", "path", "a.md", "links", links)
package log
