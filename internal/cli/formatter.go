package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/jolt/internal/finder"
	"github.com/idelchi/jolt/internal/search"
	"github.com/idelchi/jolt/internal/sysinfo"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
	// MaxCommandWidth truncates process command lines in tables.
	MaxCommandWidth = 60
	// SnapshotProcesses is the number of processes shown in the diagnose table.
	SnapshotProcesses = 20
)

// render writes v in the requested format, using table for the table format.
func render(w io.Writer, format string, v any, table func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case "json":
		return PrintJSON(v, w)
	case "yaml":
		return PrintYAML(v, w)
	case "table", "":
		return table(w)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// PrintJSON outputs v in indented JSON format.
func PrintJSON(v any, writer io.Writer) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs v in YAML format.
func PrintYAML(v any, writer io.Writer) error {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return enc.Close()
}

func newTabWriter(writer io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(total)
}

// truncate shortens s to at most width runes, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}

	return string([]rune(s)[:width-1]) + "…"
}

// PrintScanTable outputs a largest-file scan in human-readable table format.
//
//nolint:forbidigo // This function prints output to the console.
func PrintScanTable(res *finder.Result, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintf(w, "\n%s\t\t\n", headingColor("Top files:"))

	for i, f := range res.TopFiles {
		fmt.Fprintf(w, "  %d) '%s'\t%d MB\t%s (%.1f%%)\n",
			i+1, f.Path, f.SizeMB, humanize.IBytes(uint64(f.Bytes)), //nolint:gosec // Sizes are never negative
			percent(f.Bytes, res.TotalBytes))
	}

	fmt.Fprintf(w, "\n%s\t\t\n", headingColor("Stats:"))
	fmt.Fprintf(w, "Roots:\t%s\t\n", strings.Join(res.Roots, ", "))
	fmt.Fprintf(w, "Total files:\t%s\t\n", humanize.Comma(res.FileCount))
	fmt.Fprintf(w, "Total size:\t%s (%d bytes)\t\n",
		humanize.IBytes(uint64(res.TotalBytes)), res.TotalBytes) //nolint:gosec // Sizes are never negative
	fmt.Fprintf(w, "Unreadable directories:\t%d\t\n", res.EnumerationErrors)
	fmt.Fprintf(w, "Unreadable files:\t%d\t\n", res.MetadataErrors)
	fmt.Fprintf(w, "Peak walkers:\t%d\t\n", res.PeakTasks)

	for _, re := range res.RootErrors {
		fmt.Fprintf(w, "Failed root:\t%s: %s\t\n", re.Root, re.Error)
	}

	if res.Incomplete {
		fmt.Fprintf(w, "Incomplete:\t%s\t\n", warningColor("yes (idle timeout)"))
	}

	fmt.Fprintf(w, "\nElapsed:\t%v\t\n", res.Elapsed.Round(time.Millisecond))

	return w.Flush()
}

// PrintSearch outputs search matches, one per line, followed by a summary.
//
//nolint:forbidigo // This function prints output to the console.
func PrintSearch(res *search.Result, writer io.Writer) error {
	for _, m := range res.Matches {
		fmt.Fprintln(writer, m)
	}

	summary := fmt.Sprintf("\n%s matches for %q under %s in %v",
		humanize.Comma(int64(len(res.Matches))), res.Term, res.Root, res.Elapsed.Round(time.Millisecond))
	if res.ErrorCount > 0 {
		summary += fmt.Sprintf(" (%d unreadable directories skipped)", res.ErrorCount)
	}

	_, err := fmt.Fprintln(writer, summary)

	return err
}

// PrintLines outputs each line as is.
func PrintLines(lines []string, writer io.Writer) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(writer, "No entries.")

		return err
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}

	return nil
}

// PrintCPUs outputs per-CPU usage.
//
//nolint:forbidigo // This function prints output to the console.
func PrintCPUs(cpus []sysinfo.CPU, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintln(w, "CPU\tBRAND\tMHZ\tUSAGE")

	for _, c := range cpus {
		fmt.Fprintf(w, "%s\t%s\t%.0f\t%.1f%%\n", c.Name, c.Brand, c.Frequency, c.Usage)
	}

	return w.Flush()
}

// PrintMemory outputs memory and swap usage.
//
//nolint:forbidigo // This function prints output to the console.
func PrintMemory(mem *sysinfo.Memory, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintf(w, "Total memory:\t%s\n", humanize.IBytes(mem.Total))
	fmt.Fprintf(w, "Used memory:\t%s (%.1f%%)\n", humanize.IBytes(mem.Used), mem.UsedPct)
	fmt.Fprintf(w, "Free memory:\t%s\n", humanize.IBytes(mem.Free))
	fmt.Fprintf(w, "Available memory:\t%s\n", humanize.IBytes(mem.Available))
	fmt.Fprintf(w, "Total swap:\t%s\n", humanize.IBytes(mem.SwapTotal))
	fmt.Fprintf(w, "Used swap:\t%s\n", humanize.IBytes(mem.SwapUsed))

	return w.Flush()
}

// PrintProcesses outputs a process table.
//
//nolint:forbidigo // This function prints output to the console.
func PrintProcesses(procs []sysinfo.Process, writer io.Writer) error {
	w := newTabWriter(writer)

	fmt.Fprintln(w, "PID\tUSER\tCPU%\tMEM%\tSTARTED\tNAME\tCOMMAND")

	for _, p := range procs {
		started := "-"
		if !p.CreateTime.IsZero() {
			started = humanize.Time(p.CreateTime)
		}

		command := truncate(p.Command, MaxCommandWidth)

		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\t%s\t%s\t%s\n",
			p.PID, p.User, p.CPUPercent, p.MemPercent, started, p.Name, command)
	}

	return w.Flush()
}

// PrintSnapshot outputs a diagnose snapshot.
//
//nolint:forbidigo // This function prints output to the console.
func PrintSnapshot(snap *sysinfo.Snapshot, writer io.Writer) error {
	if h := snap.Host; h != nil {
		w := newTabWriter(writer)

		fmt.Fprintf(w, "%s\t\n", headingColor("Host:"))
		fmt.Fprintf(w, "Hostname:\t%s\n", h.Hostname)
		fmt.Fprintf(w, "OS:\t%s %s %s (%s)\n", h.OS, h.Platform, h.PlatformVersion, h.Arch)
		fmt.Fprintf(w, "Kernel:\t%s\n", h.KernelVersion)
		fmt.Fprintf(w, "CPUs:\t%d\n", h.CPUs)
		fmt.Fprintf(w, "Uptime:\t%v\n", time.Duration(h.Uptime)*time.Second) //nolint:gosec // Uptime fits

		if err := w.Flush(); err != nil {
			return err
		}
	}

	if snap.Memory != nil {
		fmt.Fprintf(writer, "\n%s\n", headingColor("Memory:"))

		if err := PrintMemory(snap.Memory, writer); err != nil {
			return err
		}
	}

	fmt.Fprintf(writer, "\n%s\n", headingColor("Networks:"))

	w := newTabWriter(writer)

	fmt.Fprintln(w, "NAME\tMAC\tRECEIVED\tSENT\tPACKETS IN/OUT")

	for _, n := range snap.Networks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			n.Name, n.MAC, humanize.IBytes(n.BytesRecv), humanize.IBytes(n.BytesSent), n.PacketsRecv, n.PacketsSent)
	}

	if err := w.Flush(); err != nil {
		return err
	}

	procs := snap.Processes
	if len(procs) > SnapshotProcesses {
		procs = procs[:SnapshotProcesses]
	}

	fmt.Fprintf(writer, "\n%s (top %d of %d by CPU)\n", headingColor("Processes:"), len(procs), len(snap.Processes))

	return PrintProcesses(procs, writer)
}
