package filter

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/nao1215/extlinks/internal/model"
)

// ErrInvalidPattern is the kind shared by every ConfigError.
var ErrInvalidPattern = errors.New("invalid exclusion pattern")

// Field names used in ConfigError.
const (
	FieldPath = "excludePathRegex"
	FieldURL  = "excludePatterns"
)

// ConfigError reports a malformed regular expression in the exclusion settings.
type ConfigError struct {
	// Field is FieldPath or FieldURL.
	Field string

	// Index is the position of the pattern within FieldURL; 0 for FieldPath.
	Index int

	// Pattern is the offending expression as typed by the user.
	Pattern string

	// Err is the error returned by regexp.Compile.
	Err error
}

// Error implements error.
func (e *ConfigError) Error() string {
	if e.Field == FieldURL {
		return fmt.Sprintf("%s: %s[%d] %q: %v", ErrInvalidPattern.Error(), e.Field, e.Index, e.Pattern, e.Err)
	}
	return fmt.Sprintf("%s: %s %q: %v", ErrInvalidPattern.Error(), e.Field, e.Pattern, e.Err)
}

// Unwrap returns both the kind and the regexp error.
func (e *ConfigError) Unwrap() []error {
	return []error{ErrInvalidPattern, e.Err}
}

// Rules is the compiled form of model.Exclusions.
// A nil *Rules excludes nothing.
type Rules struct {
	source model.Exclusions
	path   *regexp.Regexp
	urls   []*regexp.Regexp
}

// Compile validates and compiles every pattern in ex.
// It returns the first malformed pattern as a *ConfigError.
func Compile(ex model.Exclusions) (*Rules, error) {
	r := &Rules{source: ex.Clone()}

	if ex.PathPattern != "" {
		re, err := regexp.Compile(ex.PathPattern)
		if err != nil {
			return nil, &ConfigError{Field: FieldPath, Pattern: ex.PathPattern, Err: err}
		}
		r.path = re
	}

	r.urls = make([]*regexp.Regexp, 0, len(ex.URLPatterns))
	for i, p := range ex.URLPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &ConfigError{Field: FieldURL, Index: i, Pattern: p, Err: err}
		}
		r.urls = append(r.urls, re)
	}

	return r, nil
}

// MustCompile is like Compile but panics on error. Intended for tests and
// package-level defaults.
func MustCompile(ex model.Exclusions) *Rules {
	r, err := Compile(ex)
	if err != nil {
		panic(err)
	}
	return r
}

// Validate reports whether ex compiles, without keeping the result.
func Validate(ex model.Exclusions) error {
	_, err := Compile(ex)
	return err
}

// PathExcluded reports whether the document at path must stay out of the cache.
// The pattern may match anywhere in the path.
func (r *Rules) PathExcluded(path string) bool {
	if r == nil || r.path == nil {
		return false
	}
	return r.path.MatchString(path)
}

// URLExcluded reports whether any URL pattern matches u.
func (r *Rules) URLExcluded(u string) bool {
	if r == nil {
		return false
	}
	for _, re := range r.urls {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// Exclusions returns a copy of the patterns the rules were compiled from.
func (r *Rules) Exclusions() model.Exclusions {
	if r == nil {
		return model.Exclusions{}
	}
	return r.source.Clone()
}
