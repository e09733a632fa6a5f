package indexer

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-enry/go-enry/v2"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
)

// Diff is the outcome of comparing a repository tree against the last-indexed
// state: which files must be re-embedded and which have disappeared.
type Diff struct {
	Changed   []string
	Deleted   []string
	Unchanged int
}

// Tracker computes content hashes per file and diffs them against persisted
// FileIndexRecords. The hash short-circuit is what makes incremental indexing
// cheap: unchanged files are skipped before any chunking or embedding.
type Tracker struct {
	maxFileSize int64
	logger      *slog.Logger
}

// NewTracker creates a change tracker. Files larger than maxFileSize bytes
// are skipped during walks.
func NewTracker(maxFileSize int64, logger *slog.Logger) *Tracker {
	if maxFileSize <= 0 {
		maxFileSize = 1024 * 1024
	}
	return &Tracker{maxFileSize: maxFileSize, logger: logger}
}

// Diff walks the repository tree and compares every included file against
// previous. A file absent from previous or with a different hash is changed;
// a file present in previous but missing from the walk is deleted. force
// bypasses the hash short-circuit so every included file counts as changed.
// Unreadable files are skipped with a warning, not fatal to the overall diff.
func (t *Tracker) Diff(repoPath string, previous map[string]domain.FileIndexRecord, force bool) (*Diff, error) {
	if _, err := os.Stat(repoPath); err != nil {
		return nil, fmt.Errorf("repository path: %w", err)
	}

	filter := NewIgnoreFilter(repoPath)
	diff := &Diff{}
	seen := make(map[string]bool)

	err := filepath.WalkDir(repoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			t.logger.Warn("walk error, skipping", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(repoPath, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && filter.ShouldIgnore(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if filter.ShouldIgnore(rel) || !IsIndexable(rel) {
			return nil
		}

		hash, ok := t.hashFile(path)
		if !ok {
			return nil
		}
		seen[rel] = true

		if prev, exists := previous[rel]; exists && prev.ContentHash == hash && !force {
			diff.Unchanged++
			return nil
		}
		diff.Changed = append(diff.Changed, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}

	for rel := range previous {
		if !seen[rel] {
			diff.Deleted = append(diff.Deleted, rel)
		}
	}

	sort.Strings(diff.Changed)
	sort.Strings(diff.Deleted)
	return diff, nil
}

// DiffFiles compares an explicit candidate set (from a webhook payload)
// instead of walking the whole tree, so work stays proportional to the
// notification. Candidates missing on disk are reported as deleted when a
// previous record exists.
func (t *Tracker) DiffFiles(repoPath string, candidates []string, previous map[string]domain.FileIndexRecord, force bool) *Diff {
	diff := &Diff{}

	for _, rel := range candidates {
		rel = filepath.ToSlash(filepath.Clean(rel))
		if !IsIndexable(rel) {
			continue
		}

		hash, ok := t.hashFile(filepath.Join(repoPath, filepath.FromSlash(rel)))
		if !ok {
			if _, exists := previous[rel]; exists {
				diff.Deleted = append(diff.Deleted, rel)
			}
			continue
		}

		if prev, exists := previous[rel]; exists && prev.ContentHash == hash && !force {
			diff.Unchanged++
			continue
		}
		diff.Changed = append(diff.Changed, rel)
	}

	sort.Strings(diff.Changed)
	sort.Strings(diff.Deleted)
	return diff
}

// ReadFile loads an included file and returns its content with hash.
func (t *Tracker) ReadFile(repoPath, rel string) (string, string, error) {
	data, err := os.ReadFile(filepath.Join(repoPath, filepath.FromSlash(rel)))
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), domain.HashContent(data), nil
}

// hashFile returns the content hash of one file, or false when the file is
// unreadable, oversized, or binary.
func (t *Tracker) hashFile(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil {
		t.logger.Warn("stat failed, skipping file", "path", path, "error", err)
		return "", false
	}
	if info.Size() > t.maxFileSize {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.logger.Warn("unreadable file skipped", "path", path, "error", err)
		return "", false
	}
	if enry.IsBinary(data) {
		return "", false
	}
	return domain.HashContent(data), true
}
