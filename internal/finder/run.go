package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// tally holds the running totals read by the progress reporter.
type tally struct {
	files atomic.Int64
	bytes atomic.Int64
}

func (t *tally) add(size int64) {
	t.files.Add(1)
	t.bytes.Add(size)
}

// startProgressReporter invokes hook(files, bytes) on each tick until ctx is done.
func startProgressReporter(ctx context.Context, t *tally, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(t.files.Load(), t.bytes.Load())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Scan walks the roots described by opt and returns the largest files found.
//
// If opt.Path is empty every mounted volume not on opt.Denylist becomes a root.
// Walkers share one channel and one ceiling; Scan is the only reader of the channel
// and the only writer of the store. Draining ends once every walker has finished,
// or, with opt.IdleTimeout set, after that long without a new path.
//
// Unreadable directories and paths that cannot be stat'ed are counted and skipped.
// A root that cannot be listed fails only itself; Scan returns an error when all do.
// On cancellation the partial result is returned together with ctx.Err().
//
//nolint:gocognit,funlen // Drain loop and result assembly read best in one place.
func Scan(ctx context.Context, opt Options, progressHook func(int64, int64)) (*Result, error) {
	opt = opt.withDefaults()

	excludes, err := CompileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	if opt.Path != "" {
		// validate path exists and is a directory
		if info, err := opt.FS.Stat(opt.Path); err != nil {
			return nil, fmt.Errorf("%w: accessing path %q: %w", ErrInvalidPath, opt.Path, err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%w: path %q is not a directory", ErrInvalidPath, opt.Path)
		}
	}

	roots, mounts, err := resolveRoots(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("resolving roots: %w", err)
	}

	slog.Debug("scan starting",
		"roots", roots,
		"count", opt.Count,
		"ceiling", opt.Ceiling,
		"policy", opt.Policy.String(),
		"idleTimeout", opt.IdleTimeout,
	)

	start := time.Now()

	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var totals tally

	startProgressReporter(scanCtx, &totals, progressHook, opt.ProgressInterval)

	paths := make(chan string, opt.Buffer)
	walk := newWalker(opt.FS, paths, opt.Ceiling, excludes, mounts)

	for _, root := range roots {
		walk.start(scanCtx, root)
	}

	done := make(chan struct{})

	go func() {
		walk.wait()
		close(paths)
		close(done)
	}()

	store := NewStore(opt.Count, opt.Policy)

	var (
		metaErrs   int64
		incomplete bool
		idle       <-chan time.Time
		timer      *time.Timer
	)

	if opt.IdleTimeout > 0 {
		timer = time.NewTimer(opt.IdleTimeout)
		defer timer.Stop()

		idle = timer.C
	}

drain:
	for {
		select {
		case path, ok := <-paths:
			if !ok {
				break drain
			}

			info, err := opt.FS.Stat(path)
			if err != nil {
				metaErrs++

				slog.Debug("cannot stat path", "path", path, "error", err)
			} else if info.Mode().IsRegular() {
				totals.add(info.Size())

				if info.Size() >= opt.MinSize {
					store.Insert(NewFileRecord(path, info.Size()))
				}
			}

			if timer != nil {
				timer.Reset(opt.IdleTimeout)
			}
		case <-idle:
			select {
			case <-done:
			default:
				incomplete = true

				slog.Warn("no paths received within idle timeout, results may be incomplete",
					"idleTimeout", opt.IdleTimeout)
			}

			break drain
		case <-ctx.Done():
			break drain
		}
	}

	// Release walkers still blocked on a send, then wait for them to exit.
	cancel()
	<-done

	store.Sort()

	res := &Result{
		Roots:             roots,
		TopFiles:          store.List(),
		FileCount:         totals.files.Load(),
		TotalBytes:        totals.bytes.Load(),
		EnumerationErrors: walk.enumErrs.Load(),
		MetadataErrors:    metaErrs,
		RootErrors:        walk.rootErrors(),
		PeakTasks:         walk.peak.Load(),
		Incomplete:        incomplete,
		Elapsed:           time.Since(start),
		TopN:              store.Cap(),
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if len(res.RootErrors) == len(roots) {
		msgs := make([]string, 0, len(res.RootErrors))
		for _, re := range res.RootErrors {
			msgs = append(msgs, re.Error)
		}

		return nil, fmt.Errorf("%w: %s", ErrNoReadableRoots, strings.Join(msgs, "; "))
	}

	return res, nil
}

// IsPartial reports whether err left a usable partial result behind.
func IsPartial(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
