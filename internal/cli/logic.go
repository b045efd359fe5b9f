package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/search"
	"github.com/idelchi/jolt/internal/sysinfo"
	"github.com/idelchi/jolt/internal/syslog"
)

// errorSource returns recent system error entries.
type errorSource interface {
	Errors(ctx context.Context, count int) ([]string, error)
}

// eventSource searches the Windows System event log.
type eventSource interface {
	SearchEvents(ctx context.Context, term string) ([]string, error)
}

// progressEnabled reports whether an in-place progress line can be drawn on w.
func (a *app) progressEnabled(w io.Writer) bool {
	if a.cfg.Output != "table" || debugLogging(a.cfg.LogLevel) {
		return false
	}

	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// debugLogging reports whether debug logs would interleave with the progress line.
func debugLogging(level string) bool {
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}

	return level == "debug"
}

func (a *app) runSpaceFinder(ctx context.Context, path string) error {
	options, err := a.cfg.Finder.Options(path)
	if err != nil {
		return err
	}

	enableProgress := a.progressEnabled(a.errOut)

	var progressHook func(files, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(a.errOut, "\033[?25l")
		defer fmt.Fprint(a.errOut, "\033[?25h")

		progressHook = func(files, bytes int64) {
			msg := fmt.Sprintf("Scanning… %s files, %s",
				humanize.Comma(files), humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(a.errOut, "\r\033[2K%s\r", msg)
		}
	}

	res, err := finder.Scan(ctx, options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(a.errOut, "\r\033[2K\r")
	}

	if err != nil && (res == nil || !finder.IsPartial(err)) {
		return err
	}

	if printErr := render(a.out, a.cfg.Output, res, func(w io.Writer) error { return PrintScanTable(res, w) }); printErr != nil {
		return printErr
	}

	if err != nil {
		return fmt.Errorf("scan interrupted, results are partial: %w", err)
	}

	if res.Incomplete {
		fmt.Fprintf(a.errOut, "%s idle timeout reached, some directories may not have been scanned\n",
			warningColor("Warning:"))
	}

	return nil
}

func (a *app) runSearch(ctx context.Context, dir, pattern string, fullPath bool) error {
	res, err := search.Run(ctx, search.Options{
		Path:         dir,
		Term:         pattern,
		ShowFullPath: fullPath,
		Excludes:     a.cfg.Finder.Excludes,
		Workers:      a.cfg.Search.Workers,
	})
	if err != nil {
		return err
	}

	return render(a.out, a.cfg.Output, res, func(w io.Writer) error { return PrintSearch(res, w) })
}

func (a *app) runSearchLogs(ctx context.Context, pattern string) error {
	if runtime.GOOS == "windows" {
		return a.runSearchEvents(ctx, syslog.NewJournal(), pattern)
	}

	res, err := syslog.SearchLogs(ctx, a.cfg.Search.LogDir, pattern, a.cfg.Finder.Excludes)
	if err != nil {
		return fmt.Errorf("searching logs: %w", err)
	}

	return render(a.out, a.cfg.Output, res, func(w io.Writer) error { return PrintSearch(res, w) })
}

func (a *app) runSearchEvents(ctx context.Context, src eventSource, pattern string) error {
	entries, err := src.SearchEvents(ctx, pattern)
	if err != nil {
		return fmt.Errorf("searching event log: %w", err)
	}

	return render(a.out, a.cfg.Output, entries, func(w io.Writer) error { return PrintLines(entries, w) })
}

func (a *app) runShowErrors(ctx context.Context, src errorSource, count int) error {
	entries, err := src.Errors(ctx, count)
	if err != nil {
		return err
	}

	return render(a.out, a.cfg.Output, entries, func(w io.Writer) error { return PrintLines(entries, w) })
}

func (a *app) runDiagnose(ctx context.Context) error {
	snap, err := sysinfo.Collector{}.Diagnose(ctx)
	if err != nil {
		return err
	}

	return render(a.out, a.cfg.Output, snap, func(w io.Writer) error { return PrintSnapshot(snap, w) })
}

func (a *app) runCPU(ctx context.Context) error {
	cpus, err := sysinfo.Collector{}.CPUs(ctx)
	if err != nil {
		return err
	}

	return render(a.out, a.cfg.Output, cpus, func(w io.Writer) error { return PrintCPUs(cpus, w) })
}

func (a *app) runMemory(ctx context.Context) error {
	mem, err := sysinfo.Collector{}.Memory(ctx)
	if err != nil {
		return err
	}

	return render(a.out, a.cfg.Output, mem, func(w io.Writer) error { return PrintMemory(mem, w) })
}

func (a *app) runKill(ctx context.Context, pid int32) error {
	if err := (sysinfo.Collector{}).Kill(ctx, pid); err != nil {
		return err
	}

	slog.Debug("process killed", "pid", pid)

	_, err := fmt.Fprintf(a.out, "Killed process %d\n", pid)

	return err
}
