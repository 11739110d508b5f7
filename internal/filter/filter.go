// Package filter decides which filesystem entries belong in an archive.
package filter

import (
	"path/filepath"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

// Decision is the outcome for one entry.
type Decision int

const (
	Include Decision = iota
	Exclude
)

func (d Decision) String() string {
	if d == Include {
		return "include"
	}
	return "exclude"
}

// Reason explains an Exclude decision.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonExcluded Reason = "exclusion"
	ReasonRoot     Reason = "root"
	ReasonConfig   Reason = "config"
	ReasonFormat   Reason = "format"
)

// Filter is a pure predicate over relative paths.
type Filter struct {
	Exclusions domain.ExclusionSet
	Format     domain.Format
	// ConfigNames are always skipped when one is an entry's base name.
	ConfigNames []string
}

// New returns a Filter for the given format and exclusions. Empty config
// names are ignored.
func New(format domain.Format, exclusions domain.ExclusionSet, configNames ...string) Filter {
	f := Filter{Exclusions: exclusions, Format: format}
	for _, name := range configNames {
		if name != "" {
			f.ConfigNames = append(f.ConfigNames, name)
		}
	}
	return f
}

// Decide classifies rel, a path relative to the archive root. Directories
// pass the format check so the tree structure survives even when no file
// under them matches.
func (f Filter) Decide(rel string, isDir bool) (Decision, Reason) {
	rel = filepath.ToSlash(rel)
	if _, ok := f.Exclusions.Match(rel); ok {
		return Exclude, ReasonExcluded
	}
	if rel == "." || rel == "" {
		return Exclude, ReasonRoot
	}
	if !isDir && f.isConfig(filepath.Base(rel)) {
		return Exclude, ReasonConfig
	}
	if !isDir && f.Format.LanguageSpecific() && !f.Format.Allows(rel) {
		return Exclude, ReasonFormat
	}
	return Include, ReasonNone
}

// Includes is Decide without the reason.
func (f Filter) Includes(rel string, isDir bool) bool {
	d, _ := f.Decide(rel, isDir)
	return d == Include
}

func (f Filter) isConfig(base string) bool {
	for _, name := range f.ConfigNames {
		if base == name {
			return true
		}
	}
	return false
}
