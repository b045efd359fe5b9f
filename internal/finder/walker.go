package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// walker streams file paths found below its roots to out.
//
// Directories in mounts are mount points walked by their own root task (or denied), so no
// task descends into them from a parent volume. Root tasks always run. Every other task needs a slot from sem; when none is free the
// subdirectory goes onto the work queue of the task that found it instead.
type walker struct {
	fsys     FileSystem
	out      chan<- string
	excludes []*regexp.Regexp
	mounts   map[string]struct{}

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	active   atomic.Int64
	peak     atomic.Int64
	enumErrs atomic.Int64

	mu       sync.Mutex
	rootErrs []RootError
}

func newWalker(fsys FileSystem, out chan<- string, ceiling int, excludes []*regexp.Regexp, mounts []string) *walker {
	set := make(map[string]struct{}, len(mounts))
	for _, m := range mounts {
		set[m] = struct{}{}
	}

	return &walker{
		fsys:     fsys,
		out:      out,
		excludes: excludes,
		mounts:   set,
		sem:      semaphore.NewWeighted(int64(ceiling)),
	}
}

// start launches the task for a root.
func (w *walker) start(ctx context.Context, root string) {
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		err := w.walk(ctx, root, true)
		if err == nil || errors.Is(err, ErrReceiverGone) {
			return
		}

		slog.Warn("cannot read root", "root", root, "error", err)

		w.mu.Lock()
		w.rootErrs = append(w.rootErrs, RootError{Root: root, Error: err.Error()})
		w.mu.Unlock()
	}()
}

// wait blocks until every task has finished.
func (w *walker) wait() {
	w.wg.Wait()
}

// trySpawn starts a task for dir if a slot is free.
func (w *walker) trySpawn(ctx context.Context, dir string) bool {
	if !w.sem.TryAcquire(1) {
		return false
	}

	n := w.active.Add(1)
	for {
		p := w.peak.Load()
		if n <= p || w.peak.CompareAndSwap(p, n) {
			break
		}
	}

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		defer w.release()

		if err := w.walk(ctx, dir, false); err != nil {
			slog.Debug("walker task stopped", "dir", dir, "error", err)
		}
	}()

	return true
}

func (w *walker) release() {
	w.active.Add(-1)
	w.sem.Release(1)
}

// walk processes start and every subdirectory it cannot hand off to a new task.
// Only a failure to list start itself is returned when isRoot is set.
//
//nolint:gocognit // Queue handling and entry dispatch belong together.
func (w *walker) walk(ctx context.Context, start string, isRoot bool) error {
	queue := []string{start}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			return ErrReceiverGone
		}

		dir := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		entries, err := w.fsys.ReadDir(dir)
		if err != nil {
			w.enumErrs.Add(1)

			if len(entries) == 0 {
				if isRoot && dir == start {
					return fmt.Errorf("listing %q: %w", dir, err)
				}

				slog.Debug("cannot read directory", "dir", dir, "error", err)

				continue
			}

			slog.Debug("partial directory listing", "dir", dir, "entries", len(entries), "error", err)
		}

		//nolint:varnamelen // e is standard for DirEntry
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())

			if re := Excluded(path, w.excludes); re != nil {
				slog.Debug("excluding path", "path", filepath.ToSlash(path), "regex", re.String())

				continue
			}

			if e.IsDir() {
				if _, ok := w.mounts[path]; ok {
					slog.Debug("skipping mount point", "path", path)

					continue
				}

				if !w.trySpawn(ctx, path) {
					queue = append(queue, path)
				}

				continue
			}

			select {
			case w.out <- path:
			case <-ctx.Done():
				return ErrReceiverGone
			}
		}
	}

	return nil
}

// rootErrors returns a copy of the recorded root failures.
func (w *walker) rootErrors() []RootError {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]RootError, len(w.rootErrs))
	copy(out, w.rootErrs)

	return out
}
