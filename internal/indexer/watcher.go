package indexer

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchTarget ties a repository checkout to its collection.
type WatchTarget struct {
	Collection string
	RepoPath   string
}

// Watcher observes repository checkouts with fsnotify and reports the files
// touched in each burst of events, debounced so one save storm becomes one
// incremental indexing job.
type Watcher struct {
	fsw      *fsnotify.Watcher
	targets  []WatchTarget
	debounce time.Duration
	notify   func(collection, repoPath string, changed []string)
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]map[string]bool // collection -> changed rel paths
	timers  map[string]*time.Timer
}

// NewWatcher creates a watcher over the given targets. notify is invoked
// after the debounce window with the accumulated changed files.
func NewWatcher(targets []WatchTarget, debounce time.Duration, notify func(collection, repoPath string, changed []string), logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		targets:  targets,
		debounce: debounce,
		notify:   notify,
		logger:   logger,
		pending:  make(map[string]map[string]bool),
		timers:   make(map[string]*time.Timer),
	}, nil
}

// Start registers all target trees and processes events until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	for _, t := range w.targets {
		if err := w.addTree(t.RepoPath); err != nil {
			w.logger.Warn("watch target unavailable", "repo", t.RepoPath, "error", err)
			continue
		}
		w.logger.Info("watching repository", "collection", t.Collection, "path", t.RepoPath)
	}

	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// addTree registers a directory and all its subdirectories; fsnotify watches
// are not recursive on their own.
func (w *Watcher) addTree(root string) error {
	filter := NewIgnoreFilter(root)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && rel != "." && filter.ShouldIgnore(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	for _, t := range w.targets {
		rel, err := filepath.Rel(t.RepoPath, event.Name)
		if err != nil || filepath.IsAbs(rel) || rel == ".." || len(rel) > 1 && rel[:2] == ".." {
			continue
		}
		rel = filepath.ToSlash(rel)
		if !IsIndexable(rel) {
			continue
		}
		w.record(t, rel)
		return
	}
}

// record accumulates a change and (re)arms the collection's debounce timer.
func (w *Watcher) record(t WatchTarget, rel string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending[t.Collection] == nil {
		w.pending[t.Collection] = make(map[string]bool)
	}
	w.pending[t.Collection][rel] = true

	if timer, ok := w.timers[t.Collection]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.timers[t.Collection] = time.AfterFunc(w.debounce, func() {
		w.flush(t)
	})
}

func (w *Watcher) flush(t WatchTarget) {
	w.mu.Lock()
	files := w.pending[t.Collection]
	delete(w.pending, t.Collection)
	delete(w.timers, t.Collection)
	w.mu.Unlock()

	if len(files) == 0 {
		return
	}
	changed := make([]string, 0, len(files))
	for rel := range files {
		changed = append(changed, rel)
	}
	w.notify(t.Collection, t.RepoPath, changed)
}
