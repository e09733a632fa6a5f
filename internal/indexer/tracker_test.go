package indexer

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func recordFor(t *testing.T, root, rel string) domain.FileIndexRecord {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return domain.FileIndexRecord{
		FilePath:    rel,
		ContentHash: domain.HashContent(data),
		ChunkIDs:    []string{domain.ChunkID(rel, 0)},
	}
}

func newTestTracker() *Tracker {
	return NewTracker(1024*1024, slog.New(slog.DiscardHandler))
}

func TestTrackerDiffFirstRunEverythingChanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "docs/readme.md", "# Readme\n")
	writeFile(t, root, "image.png", "not indexable")

	diff, err := newTestTracker().Diff(root, nil, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"docs/readme.md", "main.go"}, diff.Changed)
	assert.Empty(t, diff.Deleted)
	assert.Zero(t, diff.Unchanged)
}

func TestTrackerDiffUnchangedFilesSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "util.go", "package main\n\nfunc helper() {}\n")

	previous := map[string]domain.FileIndexRecord{
		"main.go": recordFor(t, root, "main.go"),
		"util.go": recordFor(t, root, "util.go"),
	}

	diff, err := newTestTracker().Diff(root, previous, false)
	require.NoError(t, err)
	assert.Empty(t, diff.Changed)
	assert.Empty(t, diff.Deleted)
	assert.Equal(t, 2, diff.Unchanged)

	writeFile(t, root, "util.go", "package main\n\nfunc helper() int { return 1 }\n")
	diff, err = newTestTracker().Diff(root, previous, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"util.go"}, diff.Changed)
	assert.Equal(t, 1, diff.Unchanged)
}

func TestTrackerDiffDetectsDeletions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	previous := map[string]domain.FileIndexRecord{
		"main.go": recordFor(t, root, "main.go"),
		"gone.go": {FilePath: "gone.go", ContentHash: "deadbeef"},
	}

	diff, err := newTestTracker().Diff(root, previous, false)
	require.NoError(t, err)
	assert.Empty(t, diff.Changed)
	assert.Equal(t, []string{"gone.go"}, diff.Deleted)
}

func TestTrackerDiffForceBypassesHashes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")

	previous := map[string]domain.FileIndexRecord{
		"main.go": recordFor(t, root, "main.go"),
	}

	diff, err := newTestTracker().Diff(root, previous, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, diff.Changed)
	assert.Zero(t, diff.Unchanged)
}

func TestTrackerDiffHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "generated/code.go", "package generated\n")
	writeFile(t, root, "node_modules/dep/index.js", "module.exports = 1\n")

	diff, err := newTestTracker().Diff(root, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, diff.Changed)
}

func TestTrackerDiffSkipsBinaryAndOversize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blob.go", "package main\x00\x01\x02")
	writeFile(t, root, "big.go", "package main\n// "+string(make([]byte, 64)))

	tracker := NewTracker(16, slog.New(slog.DiscardHandler))
	diff, err := tracker.Diff(root, nil, false)
	require.NoError(t, err)
	assert.Empty(t, diff.Changed)
}

func TestTrackerDiffFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "kept.go", "package main\n")
	writeFile(t, root, "touched.go", "package main\n\nvar x = 2\n")

	previous := map[string]domain.FileIndexRecord{
		"kept.go":    recordFor(t, root, "kept.go"),
		"removed.go": {FilePath: "removed.go", ContentHash: "deadbeef"},
	}

	diff := newTestTracker().DiffFiles(root,
		[]string{"kept.go", "touched.go", "removed.go", "logo.svg"},
		previous, false)

	assert.Equal(t, []string{"touched.go"}, diff.Changed)
	assert.Equal(t, []string{"removed.go"}, diff.Deleted)
	assert.Equal(t, 1, diff.Unchanged)
}

func TestTrackerDiffFilesMissingWithoutRecordIgnored(t *testing.T) {
	root := t.TempDir()

	diff := newTestTracker().DiffFiles(root, []string{"never/indexed.go"}, nil, false)
	assert.Empty(t, diff.Changed)
	assert.Empty(t, diff.Deleted)
}

func TestTrackerDiffMissingRepoPath(t *testing.T) {
	_, err := newTestTracker().Diff(filepath.Join(t.TempDir(), "nope"), nil, false)
	assert.Error(t, err)
}
