package domain

import (
	"fmt"
	"strings"
)

// Format controls which files are eligible for inclusion in an archive.
type Format string

const (
	// FormatRepository includes every entry that is not excluded.
	FormatRepository Format = "repository"
	// FormatPython includes only Python sources and packaging metadata.
	FormatPython Format = "python"
)

// pythonSuffixes is matched against the end of a file's relative path.
var pythonSuffixes = []string{
	".py",
	".pyi",
	"requirements.txt",
	"pyproject.toml",
	"setup.cfg",
	"Pipfile",
	"Pipfile.lock",
}

// Formats lists every accepted format in display order.
func Formats() []Format {
	return []Format{FormatRepository, FormatPython}
}

// ParseFormat accepts exactly the values returned by Formats.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatRepository, FormatPython:
		return f, nil
	default:
		return "", &Error{
			Kind: KindConfig,
			Op:   "parse format",
			Err:  fmt.Errorf("unsupported format %q (expected one of: %s)", s, formatList()),
		}
	}
}

// LanguageSpecific reports whether the format restricts files to an allow-list.
func (f Format) LanguageSpecific() bool {
	return len(f.Suffixes()) > 0
}

// Suffixes returns the allow-list for a language-specific format, nil otherwise.
func (f Format) Suffixes() []string {
	switch f {
	case FormatPython:
		out := make([]string, len(pythonSuffixes))
		copy(out, pythonSuffixes)
		return out
	default:
		return nil
	}
}

// Allows reports whether a file path is on the format's allow-list. Repository
// allows everything.
func (f Format) Allows(path string) bool {
	suffixes := f.Suffixes()
	if suffixes == nil {
		return true
	}
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

func (f Format) String() string { return string(f) }

func formatList() string {
	parts := make([]string, 0, 2)
	for _, f := range Formats() {
		parts = append(parts, string(f))
	}
	return strings.Join(parts, ", ")
}
