package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/naudiz/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "validated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and re-validates
// manifests on change until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation.
//
// Re-validation is debounced per manifest: every trigger (the manifest itself
// saved, or anything changing under its node_modules) resets that manifest's
// pending timer, so a burst of events during an install produces exactly one
// validation pass after the quiet period. The timer registry is owned by the
// watcher loop and torn down with it.
//
// node_modules directories are watched one level deep: installs create and
// remove package directories there. New workspace directories created at
// runtime are added to the watch list; rename events trigger a debounced
// reconciliation pass against the index.
func Watch(ctx context.Context, db *DB, store storage.Provider, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	if debounce <= 0 {
		debounce = time.Second
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := store.Root()
	if err := addDirsRecursive(w, store, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root), slog.Duration("debounce", debounce))

	// Pending re-validation timers, keyed by manifest path. Replaced, not
	// queued, on each new trigger.
	pending := make(map[string]*time.Timer)
	fireCh := make(chan string, 64)

	schedule := func(manifestPath string) {
		if t, ok := pending[manifestPath]; ok {
			t.Reset(debounce)
			return
		}
		pending[manifestPath] = time.AfterFunc(debounce, func() {
			select {
			case fireCh <- manifestPath:
			case <-ctx.Done():
			}
		})
		logger.Debug("watcher: revalidation scheduled", slog.String("path", manifestPath))
	}

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(200 * time.Millisecond)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			for _, t := range pending {
				t.Stop()
			}
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case manifestPath := <-fireCh:
			delete(pending, manifestPath)
			if _, statErr := os.Stat(filepath.Join(root, manifestPath)); statErr != nil {
				if delErr := db.DeleteManifest(manifestPath); delErr == nil {
					logger.Debug("watcher: removed", slog.String("path", manifestPath))
					if cb != nil {
						cb("deleted", manifestPath)
					}
				}
				continue
			}
			if valErr := ValidateManifest(db, store, manifestPath); valErr != nil {
				logger.Warn("watcher: validate failed",
					slog.String("path", manifestPath),
					slog.String("error", valErr.Error()))
				continue
			}
			logger.Debug("watcher: validated", slog.String("path", manifestPath))
			if cb != nil {
				cb("validated", manifestPath)
			}

		case <-reconcileCh:
			reconcileAfterRename(db, store, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil || strings.HasPrefix(rel, "..") {
				continue
			}

			// --- New directories: extend the watch list ---
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					watchNewDir(w, store, root, absPath, rel, logger, schedule)
					continue
				}
			}

			// --- node_modules churn: re-validate the owning manifest ---
			if owner, ok := ownerManifest(rel); ok {
				if manifestExists(db, root, owner) {
					schedule(owner)
				}
				continue
			}

			// Only manifests are interesting from here on.
			if filepath.Base(rel) != storage.ManifestName {
				continue
			}
			if dir := filepath.Dir(rel); dir != "." && store.Ignored(dir) {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				schedule(rel)

			case ev.Op&fsnotify.Remove != 0:
				if t, ok := pending[rel]; ok {
					t.Stop()
					delete(pending, rel)
				}
				if delErr := db.DeleteManifest(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb("deleted", rel)
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only; the new
				// path arrives as a separate Create event. Drop the old
				// entry now and reconcile shortly after.
				if delErr := db.DeleteManifest(rel); delErr == nil {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb("deleted", rel)
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// watchNewDir handles a directory Create event: node_modules and scope dirs
// are watched shallowly, regular directories recursively (scheduling any
// manifests already inside them).
func watchNewDir(w *fsnotify.Watcher, store storage.Provider, root, absPath, rel string, logger *slog.Logger, schedule func(string)) {
	base := filepath.Base(rel)

	if base == "node_modules" || strings.Contains(filepath.ToSlash(rel), "node_modules") {
		// One level inside node_modules is enough: package dirs come and
		// go there on install. Scope dirs (@types, ...) get their own add
		// so their packages are visible too.
		if base == "node_modules" || strings.HasPrefix(base, "@") {
			if addErr := w.Add(absPath); addErr != nil {
				logger.Warn("watcher: add node_modules dir failed",
					slog.String("path", absPath),
					slog.String("error", addErr.Error()))
			}
		}
		if owner, ok := ownerManifest(rel); ok {
			schedule(owner)
		}
		return
	}

	if store.Ignored(rel) {
		return
	}

	if addErr := addDirsRecursive(w, store, absPath); addErr != nil {
		logger.Warn("watcher: add new dir failed",
			slog.String("path", absPath),
			slog.String("error", addErr.Error()))
		return
	}
	logger.Debug("watcher: watching new dir", slog.String("path", absPath))

	// Schedule any manifests already present in the new directory.
	_ = filepath.WalkDir(absPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != storage.ManifestName {
			return nil
		}
		if manifestRel, relErr := filepath.Rel(root, p); relErr == nil {
			schedule(manifestRel)
		}
		return nil
	})
}

// ownerManifest maps a workspace-relative path inside a node_modules tree to
// the manifest of the package root owning that tree.
func ownerManifest(rel string) (string, bool) {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i, p := range parts {
		if p == "node_modules" {
			return filepath.Join(filepath.Join(parts[:i]...), storage.ManifestName), true
		}
	}
	return "", false
}

// manifestExists reports whether the manifest is on disk or already indexed.
func manifestExists(db *DB, root, manifestPath string) bool {
	if _, err := os.Stat(filepath.Join(root, manifestPath)); err == nil {
		return true
	}
	row, err := db.GetManifest(manifestPath)
	return err == nil && row != nil
}

// reconcileAfterRename does a lightweight sync using batch lookups: index
// entries without a file on disk are removed, and on-disk manifests whose
// checksum differs from the index are re-validated.
func reconcileAfterRename(db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List()
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteManifest(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb("deleted", p)
				}
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if valErr := ValidateManifest(db, store, p); valErr == nil {
			logger.Debug("reconcile: validated", slog.String("path", p))
			if cb != nil {
				cb("validated", p)
			}
		}
	}
}

// addDirsRecursive adds root and its subdirectories to the watcher, skipping
// ignored directories and descending only one level into node_modules.
func addDirsRecursive(w *fsnotify.Watcher, store storage.Provider, root string) error {
	base := store.Root()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(base, path)
		if relErr != nil {
			return relErr
		}
		if rel != "." {
			if d.Name() == "node_modules" {
				if addErr := w.Add(path); addErr != nil {
					return addErr
				}
				return fs.SkipDir
			}
			if store.Ignored(rel) {
				return fs.SkipDir
			}
		}
		return w.Add(path)
	})
}
