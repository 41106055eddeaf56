package analyzer

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// GitignoreParser filters discovered source files against the analyzed
// repository's .gitignore. Only the root .gitignore is consulted; nested
// ignore files and the full gitignore precedence rules are out of scope.
type GitignoreParser struct {
	rootDir          string
	ignorePatterns   []string
	negationPatterns []string
}

// NewGitignoreParser loads the root .gitignore of the given repository.
// A missing or unreadable file yields a parser that ignores nothing.
func NewGitignoreParser(rootDir string) *GitignoreParser {
	parser := &GitignoreParser{
		rootDir: rootDir,
	}
	parser.loadGitignore()
	return parser
}

func (gp *GitignoreParser) loadGitignore() {
	gitignorePath := filepath.Join(gp.rootDir, ".gitignore")
	file, err := os.Open(gitignorePath)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "!") {
			pattern := strings.TrimPrefix(line, "!")
			gp.negationPatterns = append(gp.negationPatterns, pattern)
		} else {
			gp.ignorePatterns = append(gp.ignorePatterns, line)
		}
	}
}

// ShouldIgnore reports whether a path is excluded by the loaded patterns,
// honoring ! negations after a positive match
func (gp *GitignoreParser) ShouldIgnore(path string) bool {
	relPath, err := filepath.Rel(gp.rootDir, path)
	if err != nil {
		return false
	}

	relPath = filepath.ToSlash(relPath)

	shouldIgnore := false
	for _, pattern := range gp.ignorePatterns {
		if gp.matchPattern(pattern, relPath) {
			shouldIgnore = true
			break
		}
	}

	if shouldIgnore {
		for _, pattern := range gp.negationPatterns {
			if gp.matchPattern(pattern, relPath) {
				return false
			}
		}
	}

	return shouldIgnore
}

// matchPattern matches one gitignore pattern against a slash-separated
// relative path: trailing-slash directory patterns, root-anchored patterns,
// and bare patterns matched at any depth
func (gp *GitignoreParser) matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/") {
		pattern = strings.TrimSuffix(pattern, "/")

		if strings.HasPrefix(path, pattern+"/") || path == pattern {
			return true
		}

		pathParts := strings.Split(path, "/")
		for i := range pathParts {
			if pathParts[i] == pattern {
				return true
			}
		}

		return false
	}

	if strings.HasPrefix(pattern, "/") {
		pattern = strings.TrimPrefix(pattern, "/")
		return gp.matchSimplePattern(pattern, path)
	}

	pathParts := strings.Split(path, "/")

	if gp.matchSimplePattern(pattern, path) {
		return true
	}

	for i := range pathParts {
		subPath := strings.Join(pathParts[i:], "/")
		if gp.matchSimplePattern(pattern, subPath) {
			return true
		}
	}

	if !strings.Contains(pattern, "/") {
		for _, part := range pathParts {
			if gp.matchSimplePattern(pattern, part) {
				return true
			}
		}
	}

	return false
}

func (gp *GitignoreParser) matchSimplePattern(pattern, text string) bool {
	if pattern == text {
		return true
	}

	if strings.Contains(pattern, "*") {
		return gp.matchWildcard(pattern, text)
	}

	return false
}

// matchWildcard supports the single-* forms: prefix, suffix, and contains.
// Multi-star and character-class patterns are not recognized.
func (gp *GitignoreParser) matchWildcard(pattern, text string) bool {
	if pattern == "*" {
		return true
	}

	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") {
		middle := pattern[1 : len(pattern)-1]
		return strings.Contains(text, middle)
	}

	if strings.HasPrefix(pattern, "*") {
		suffix := pattern[1:]
		return strings.HasSuffix(text, suffix)
	}

	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return strings.HasPrefix(text, prefix)
	}

	return false
}
