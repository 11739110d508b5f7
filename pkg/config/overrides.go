package config

import (
	"strings"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

// Overrides carries CLI flags. Nil pointers and empty strings mean "not given".
type Overrides struct {
	APIKey           string
	ServerURL        string
	CompetitionID    string
	CompressionLevel *int
	ForceFormat      string
	AutoConfirm      bool
	Exclude          []string
}

// Target is the immutable submission target for one run.
type Target struct {
	ServerURL        string
	APIKey           string
	CompetitionID    string
	CompressionLevel int
}

// Resolved is the merged view of config file and CLI overrides (CLI wins).
type Resolved struct {
	Target Target
	// ForcedFormat and ConfiguredFormat stay raw until the pipeline validates them.
	ForcedFormat     string
	ConfiguredFormat string
	AutoConfirm      bool
	Exclusions       domain.ExclusionSet
	ScratchDir       string
}

// Merge combines c with o. c may be nil when no config file is available.
func Merge(c *Config, o Overrides) (Resolved, error) {
	if c == nil {
		c = &Config{}
		c.applyDefaults()
	}
	merged := *c
	if v := strings.TrimSpace(o.APIKey); v != "" {
		merged.APIKey = v
	}
	if v := strings.TrimSpace(o.ServerURL); v != "" {
		merged.ServerURL = v
	}
	if v := strings.TrimSpace(o.CompetitionID); v != "" {
		merged.CompetitionID = v
	}
	if o.CompressionLevel != nil {
		level := *o.CompressionLevel
		merged.CompressionLevel = &level
	}
	if err := merged.Validate(); err != nil {
		return Resolved{}, err
	}

	exclude := append(append([]string{}, merged.Exclude...), o.Exclude...)
	return Resolved{
		Target: Target{
			ServerURL:        strings.TrimRight(strings.TrimSpace(merged.ServerURL), "/"),
			APIKey:           strings.TrimSpace(merged.APIKey),
			CompetitionID:    strings.TrimSpace(merged.CompetitionID),
			CompressionLevel: merged.Level(),
		},
		ForcedFormat:     strings.TrimSpace(o.ForceFormat),
		ConfiguredFormat: strings.TrimSpace(merged.Format),
		AutoConfirm:      o.AutoConfirm || merged.Preferences.AutoConfirm,
		Exclusions:       domain.NewExclusionSet(exclude...),
		ScratchDir:       strings.TrimSpace(merged.ScratchDir),
	}, nil
}
