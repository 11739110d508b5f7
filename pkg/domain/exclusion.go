package domain

import "strings"

// ArchiveExtension is the extension of every artifact produced by the builder.
const ArchiveExtension = ".zip"

// ArchiveContentType is sent as the MIME type of the uploaded archive part.
const ArchiveContentType = "application/zip"

// BaselineExclusions are always part of an ExclusionSet, ahead of user entries.
var BaselineExclusions = []string{
	".git",
	".DS_Store",
	"target",
	"node_modules",
	ArchiveExtension,
}

// ExclusionSet is an ordered list of substrings. A path is excluded when it
// contains any member anywhere in its string form, regardless of path
// segment boundaries: "target" also drops "retargeting.py".
type ExclusionSet []string

// NewExclusionSet returns the baseline followed by the non-empty user entries.
// Duplicates are dropped, first occurrence wins.
func NewExclusionSet(user ...string) ExclusionSet {
	seen := make(map[string]struct{}, len(BaselineExclusions)+len(user))
	out := make(ExclusionSet, 0, len(BaselineExclusions)+len(user))
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range BaselineExclusions {
		add(s)
	}
	for _, s := range user {
		add(strings.TrimSpace(s))
	}
	return out
}

// Match returns the first member contained in path.
func (e ExclusionSet) Match(path string) (string, bool) {
	for _, s := range e {
		if s != "" && strings.Contains(path, s) {
			return s, true
		}
	}
	return "", false
}
