package update

import (
	"path/filepath"
	"strings"
)

var osAliases = map[string][]string{
	"darwin":  {"darwin", "macos", "osx"},
	"windows": {"windows", "win64", "win32"},
	"linux":   {"linux"},
	"freebsd": {"freebsd"},
}

var archAliases = map[string][]string{
	"amd64": {"amd64", "x86_64", "x64"},
	"arm64": {"arm64", "aarch64"},
	"386":   {"386", "i386"},
	"arm":   {"armv7", "armv6"},
}

// preferred lists installer extensions per platform, best first. Archives
// come last everywhere.
var preferred = map[string][]string{
	"windows": {".msi", ".exe", ".zip"},
	"darwin":  {".pkg", ".dmg", ".tar.gz", ".tgz", ".zip"},
	"linux":   {".deb", ".rpm", ".sh", ".tar.gz", ".tgz", ".zip"},
}

var fallbackExts = []string{".tar.gz", ".tgz", ".zip"}

// Ext returns the installer extension of name, treating ".tar.gz" as one.
func Ext(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") {
		return ".tar.gz"
	}
	return filepath.Ext(lower)
}

// SelectAsset picks the asset built for goos/goarch, preferring native
// installers over archives. Checksums and signatures are never selected.
func SelectAsset(assets []Asset, goos, goarch string) (Asset, bool) {
	exts, ok := preferred[goos]
	if !ok {
		exts = fallbackExts
	}
	best, bestRank := Asset{}, len(exts)
	for _, a := range assets {
		lower := strings.ToLower(a.Name)
		if !matchesAny(lower, aliases(osAliases, goos)) || !matchesAny(lower, aliases(archAliases, goarch)) {
			continue
		}
		ext := Ext(a.Name)
		for rank, want := range exts {
			if ext == want && rank < bestRank {
				best, bestRank = a, rank
			}
		}
	}
	return best, bestRank < len(exts)
}

func aliases(table map[string][]string, key string) []string {
	if v, ok := table[key]; ok {
		return v
	}
	return []string{key}
}

func matchesAny(name string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(name, n) {
			return true
		}
	}
	return false
}
