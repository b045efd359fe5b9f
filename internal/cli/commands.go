package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/integration"
	"github.com/idelchi/jolt/internal/server"
	"github.com/idelchi/jolt/internal/syslog"
)

func (a *app) searchCommand() *cobra.Command {
	var (
		pattern string
		dir     string
		names   bool
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search for files by name",
		Long: heredoc.Doc(`
			Search for files whose name contains a pattern.

			The pattern is a plain, case-sensitive substring; no globbing. Directories that
			cannot be read are skipped and counted.
		`),
		Example: "  jolt search -p _test -d ./src",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearch(cmd.Context(), dir, pattern, !names)
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Pattern to search for")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to search")
	cmd.Flags().BoolVar(&names, "names", false, "Print bare file names instead of full paths")
	cmd.Flags().StringSlice("exclude", nil, "Regex patterns to exclude")
	cmd.Flags().Int("workers", 0, "Number of walker goroutines (0 = automatic)")
	bindFlag(cmd.Flags(), "exclude", "finder.excludes")
	bindFlag(cmd.Flags(), "workers", "search.workers")

	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func (a *app) searchLogsCommand() *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "search-logs",
		Short: "Search log files by name",
		Long: heredoc.Doc(`
			Search the system log directory (default /var/log) for files whose name
			contains a pattern. Full paths are printed.

			On Windows the System event log is searched instead, printing events with
			a data value containing the pattern.
		`),
		Example: "  jolt search-logs -p .gz",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSearchLogs(cmd.Context(), pattern)
		},
	}

	cmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Pattern to search for")
	cmd.Flags().String("log-dir", "/var/log", "Log directory to search")
	bindFlag(cmd.Flags(), "log-dir", "search.log_dir")

	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func (a *app) spaceFinderCommand() *cobra.Command {
	var (
		dir string
		all bool
	)

	cmd := &cobra.Command{
		Use:   "space-finder",
		Short: "Find the largest files",
		Long: heredoc.Doc(`
			Find the largest files under a directory, or on every mounted volume with --all.

			Directories are walked concurrently; at most --ceiling walkers run at once.
			Sizes are reported in whole megabytes.

			By default, once --count files are tracked each new file replaces the smallest
			tracked one, so the list reflects the files seen last as much as the largest.
			Use --strict to keep only the true largest files.

			With --idle-timeout the scan stops after that long without a new file, which
			may leave slow subtrees unscanned; the result is then flagged incomplete.
		`),
		Example: heredoc.Doc(`
			  jolt space-finder -d /home -c 10 --strict
			  jolt space-finder --all --min-size 100MiB -o json
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := dir
			if all {
				path = ""
			}

			return a.runSpaceFinder(cmd.Context(), path)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to scan")
	cmd.Flags().BoolVar(&all, "all", false, "Scan every mounted volume")
	cmd.Flags().IntP("count", "c", finder.DefaultCount, "Number of files to return")
	cmd.Flags().Int("ceiling", finder.DefaultCeiling, "Maximum number of concurrent directory walkers")
	cmd.Flags().Int("buffer", finder.DefaultBuffer, "Capacity of the discovered-path queue")
	cmd.Flags().Duration("idle-timeout", 0, "Stop after this long without a new file (0 = wait for completion)")
	cmd.Flags().Bool("strict", false, "Only replace the smallest tracked file with a larger one")
	cmd.Flags().String("min-size", "0B", "Ignore files smaller than this (e.g. 10MB, 1GiB)")
	cmd.Flags().StringSlice("exclude", nil, "Regex patterns to exclude")
	cmd.Flags().StringSlice("denylist", finder.DefaultDenylist, "Mount points (or globs) skipped with --all")

	for flag, key := range map[string]string{
		"count":        "finder.count",
		"ceiling":      "finder.ceiling",
		"buffer":       "finder.buffer",
		"idle-timeout": "finder.idle_timeout",
		"strict":       "finder.strict",
		"min-size":     "finder.min_size",
		"exclude":      "finder.excludes",
		"denylist":     "finder.denylist",
	} {
		bindFlag(cmd.Flags(), flag, key)
	}

	cmd.MarkFlagsMutuallyExclusive("dir", "all")

	return cmd
}

func (a *app) showErrorsCommand() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "show-errors",
		Short: "Show recent system errors",
		Long:  "Show the most recent error entries of the systemd journal, or of the Windows System event log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runShowErrors(cmd.Context(), syslog.NewJournal(), count)
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", syslog.DefaultCount, "Number of entries to return")

	return cmd
}

func (a *app) diagnoseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Show host, memory, network and process information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDiagnose(cmd.Context())
		},
	}
}

func (a *app) cpuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cpu",
		Short: "Show per-CPU usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCPU(cmd.Context())
		},
	}
}

func (a *app) memoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "memory",
		Short: "Show memory and swap usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runMemory(cmd.Context())
		},
	}
}

func (a *app) killTaskCommand() *cobra.Command {
	var pid int32

	cmd := &cobra.Command{
		Use:     "kill-task",
		Short:   "Kill a process",
		Example: "  jolt kill-task --pid 4242",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runKill(cmd.Context(), pid)
		},
	}

	cmd.Flags().Int32VarP(&pid, "pid", "p", 0, "Process id to kill")

	_ = cmd.MarkFlagRequired("pid")

	return cmd
}

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the jolt HTTP API",
		Long: heredoc.Doc(`
			Serve host diagnostics and filesystem scans over HTTP.

			Routes: /, /health, /ready, /metrics, /diagnose, /info/cpu, /info/memory,
			POST /search and POST /file/largest.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.New(a.cfg, server.WithVersion(a.version)).Run(cmd.Context())
		},
	}

	cmd.Flags().String("address", "", "Address to listen on")
	cmd.Flags().Int("port", 3000, "Port to listen on")
	bindFlag(cmd.Flags(), "address", "server.address")
	bindFlag(cmd.Flags(), "port", "server.port")

	return cmd
}

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Print the zsh integration script",
		Long: heredoc.Doc(`
			Print a zsh script that binds Ctrl-F to an fzf picker over 'jolt search'.

			Add to ~/.zshrc:

			  eval "$(jolt init)"
		`),
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rendered, err := integration.Render()
			if err != nil {
				return fmt.Errorf("rendering integration script: %w", err)
			}

			_, err = fmt.Fprintln(a.out, rendered)

			return err
		},
	}
}
