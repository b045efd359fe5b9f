// Package search finds files whose names contain a term.
//
// The walk is delegated to fastwalk, which reads directories in parallel with its own
// worker pool. Matches are appended to a single buffer shared by all callbacks.
package search

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/idelchi/jolt/internal/finder"
)

// Options configures a search.
type Options struct {
	// Path is the directory to search.
	Path string
	// Term is matched as a case-sensitive substring of each file name.
	Term string
	// ShowFullPath reports full paths instead of bare file names.
	ShowFullPath bool
	// Excludes contains regex patterns; matching files and directories are skipped.
	Excludes []string
	// Workers overrides the number of fastwalk workers (0 = fastwalk default).
	Workers int
}

// Result holds the matches of a search.
type Result struct {
	// Root is the searched directory.
	Root string `json:"root" yaml:"root"`
	// Term is the searched substring.
	Term string `json:"term" yaml:"term"`
	// Matches contains full paths or file names, sorted.
	Matches []string `json:"matches" yaml:"matches"`
	// ErrorCount is the number of directories that could not be read.
	ErrorCount int64 `json:"error_count" yaml:"error_count"`
	// Elapsed is the total time taken for the search.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// buffer is the append-only match list shared by walk callbacks.
type buffer struct {
	mu      sync.Mutex
	matches []string
	errors  int64
}

func (b *buffer) add(match string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.matches = append(b.matches, match)
}

func (b *buffer) addError() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.errors++
}

// Run searches opt.Path for files whose name contains opt.Term.
//
// A directory that cannot be read is skipped along with its subtree; siblings already
// being walked are unaffected. Failing to read the root itself is an error.
// An empty term matches every file.
func Run(ctx context.Context, opt Options) (*Result, error) {
	if opt.Path == "" {
		opt.Path = "."
	}

	opt.Path = filepath.Clean(opt.Path)

	if statInfo, err := os.Stat(opt.Path); err != nil {
		return nil, fmt.Errorf("%w: accessing path %q: %w", finder.ErrInvalidPath, opt.Path, err)
	} else if !statInfo.IsDir() {
		return nil, fmt.Errorf("%w: path %q is not a directory", finder.ErrInvalidPath, opt.Path)
	}

	excludes, err := finder.CompileExcludes(opt.Excludes)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	buf := buffer{matches: []string{}}

	conf := &fastwalk.Config{
		Follow:     false,
		NumWorkers: opt.Workers,
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, opt.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == opt.Path {
				return fmt.Errorf("reading %q: %w", path, err)
			}

			buf.addError()
			slog.Debug("cannot read directory", "path", path, "error", err)

			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if re := finder.Excluded(path, excludes); re != nil && path != opt.Path {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if d.IsDir() || !strings.Contains(d.Name(), opt.Term) {
			return nil
		}

		if opt.ShowFullPath {
			buf.add(path)
		} else {
			buf.add(d.Name())
		}

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	slices.Sort(buf.matches)

	return &Result{
		Root:       opt.Path,
		Term:       opt.Term,
		Matches:    buf.matches,
		ErrorCount: buf.errors,
		Elapsed:    time.Since(start),
	}, nil
}
