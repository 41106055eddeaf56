package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// VersionLookup finds installed package versions in a project's npm manifests
type VersionLookup struct {
	rootDir string
}

// NewVersionLookup creates a version lookup service for a project directory
func NewVersionLookup(rootDir string) *VersionLookup {
	return &VersionLookup{rootDir: rootDir}
}

// InstalledVersion finds the declared version of a package in the project's
// package.json files. Returns "" when the package is not in any manifest.
func (v *VersionLookup) InstalledVersion(packageName string) string {
	for _, manifest := range v.findManifests() {
		if version := searchNpmVersion(manifest, packageName); version != "" {
			return version
		}
	}
	return ""
}

// findManifests locates all package.json files in the project directory tree
func (v *VersionLookup) findManifests() []string {
	var files []string

	rootAbs, _ := filepath.Abs(v.rootDir)

	_ = filepath.WalkDir(v.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if d.IsDir() {
			pathAbs, _ := filepath.Abs(path)
			if pathAbs != rootAbs {
				name := d.Name()
				// Skip hidden directories and common build/cache directories
				if strings.HasPrefix(name, ".") || name == "node_modules" || name == "dist" || name == "build" {
					return filepath.SkipDir
				}
			}
			return nil
		}

		if filepath.Base(path) == "package.json" {
			files = append(files, path)
		}
		return nil
	})

	return files
}

// searchNpmVersion extracts a package version from package.json
func searchNpmVersion(manifestPath, packageName string) string {
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		return ""
	}

	pattern := fmt.Sprintf(`"%s"\s*:\s*"([^"]+)"`, regexp.QuoteMeta(packageName))
	re := regexp.MustCompile(pattern)

	if matches := re.FindStringSubmatch(string(content)); len(matches) > 1 {
		return matches[1]
	}
	return ""
}

// NormalizeVersion strips npm range operators from a manifest version string,
// leaving the base version it pins ("^1.4.2" -> "1.4.2")
func NormalizeVersion(version string) string {
	version = strings.TrimSpace(version)
	version = strings.TrimPrefix(version, "^")
	version = strings.TrimPrefix(version, "~")
	version = strings.TrimPrefix(version, ">=")
	version = strings.TrimPrefix(version, "<=")
	version = strings.TrimPrefix(version, ">")
	version = strings.TrimPrefix(version, "<")
	version = strings.TrimPrefix(version, "v")
	return strings.TrimSpace(version)
}

// Applies reports whether a contract's declared version range covers the
// installed version. Ranges are space-separated comparator conjunctions like
// ">=1.0.0 <2.0.0". Unknown installed versions apply the contract anyway:
// better to check everything than silently skip.
func Applies(versionRange, installed string) bool {
	versionRange = strings.TrimSpace(versionRange)
	if versionRange == "" || versionRange == "*" {
		return true
	}

	installed = NormalizeVersion(installed)
	if installed == "" || installed == "*" || installed == "latest" {
		return true
	}

	for _, comparator := range strings.Fields(versionRange) {
		if !satisfies(comparator, installed) {
			return false
		}
	}
	return true
}

// satisfies checks one comparator ("<2.0.0", ">=1.4.0", "1.2.3") against a version
func satisfies(comparator, installed string) bool {
	op := "="
	rest := comparator

	switch {
	case strings.HasPrefix(comparator, ">="):
		op, rest = ">=", comparator[2:]
	case strings.HasPrefix(comparator, "<="):
		op, rest = "<=", comparator[2:]
	case strings.HasPrefix(comparator, ">"):
		op, rest = ">", comparator[1:]
	case strings.HasPrefix(comparator, "<"):
		op, rest = "<", comparator[1:]
	case strings.HasPrefix(comparator, "="):
		op, rest = "=", comparator[1:]
	}

	cmp := compareVersions(installed, NormalizeVersion(rest))

	switch op {
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	default:
		return cmp == 0
	}
}

// compareVersions compares two dotted version strings numerically,
// returning -1, 0, or 1. Pre-release suffixes are ignored.
func compareVersions(a, b string) int {
	aParts := splitVersion(a)
	bParts := splitVersion(b)

	for i := 0; i < 3; i++ {
		var av, bv int
		if i < len(aParts) {
			av = aParts[i]
		}
		if i < len(bParts) {
			bv = bParts[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

func splitVersion(version string) []int {
	if idx := strings.IndexAny(version, "-+"); idx != -1 {
		version = version[:idx]
	}

	var parts []int
	for _, p := range strings.Split(version, ".") {
		n, err := strconv.Atoi(p)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
