package indexer

import (
	"os"
	"path/filepath"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// indexableExtensions is the allow-list of file types worth embedding.
var indexableExtensions = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true,
	".go": true, ".java": true, ".c": true, ".h": true, ".cpp": true,
	".hpp": true, ".cs": true, ".rs": true, ".swift": true, ".kt": true,
	".scala": true, ".rb": true, ".php": true, ".sh": true, ".sql": true,
	".md": true, ".rst": true, ".adoc": true, ".txt": true,
	".yml": true, ".yaml": true, ".json": true, ".toml": true,
	".cfg": true, ".ini": true, ".conf": true,
}

// defaultIgnorePatterns are applied on top of the repository's .gitignore.
var defaultIgnorePatterns = []string{
	".git",
	"node_modules",
	"vendor",
	"dist",
	"build",
	"target",
	"out",
	"bin",
	"__pycache__",
	".venv",
	".idea",
	".vscode",
	"*.min.js",
	"*.min.css",
	"package-lock.json",
	"yarn.lock",
	"*.lock",
}

// IgnoreFilter decides which repository paths are excluded from indexing.
// It combines the repo's .gitignore with a built-in deny-list of build and
// vendor artifacts.
type IgnoreFilter struct {
	matcher *gitignore.GitIgnore
}

// NewIgnoreFilter loads .gitignore from repoPath (if present) and compiles it
// together with the default patterns.
func NewIgnoreFilter(repoPath string) *IgnoreFilter {
	patterns := make([]string, 0, len(defaultIgnorePatterns)+16)

	if data, err := os.ReadFile(filepath.Join(repoPath, ".gitignore")); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			patterns = append(patterns, line)
		}
	}
	patterns = append(patterns, defaultIgnorePatterns...)

	return &IgnoreFilter{matcher: gitignore.CompileIgnoreLines(patterns...)}
}

// ShouldIgnore reports whether the relative path is excluded.
func (f *IgnoreFilter) ShouldIgnore(relPath string) bool {
	return f.matcher.MatchesPath(relPath)
}

// IsIndexable reports whether the file's extension is on the allow-list.
func IsIndexable(relPath string) bool {
	return indexableExtensions[strings.ToLower(filepath.Ext(relPath))]
}
