// Package syslog reads recent system error entries and searches log directories.
//
// Linux hosts are read through journalctl, Windows hosts through wevtutil and the
// System event log.
package syslog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/idelchi/jolt/internal/search"
)

// DefaultCount is the number of journal entries returned when none is requested.
const DefaultCount = 20

// ErrUnsupported is returned on platforms without a systemd journal or Windows event log.
var ErrUnsupported = errors.New("reading system errors is only supported on linux and windows")

// runFunc executes a command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Journal reads error-priority entries from the systemd journal, or error-level events from
// the Windows System log.
type Journal struct {
	Binary string

	run  runFunc
	goos string
}

// NewJournal returns a Journal backed by journalctl, or by wevtutil on Windows.
func NewJournal() *Journal {
	binary := "journalctl"
	if runtime.GOOS == "windows" {
		binary = "wevtutil"
	}

	return &Journal{
		Binary: binary,
		run:    execOutput,
		goos:   runtime.GOOS,
	}
}

// Args returns the journalctl arguments selecting the last count error entries.
func Args(count int) []string {
	if count <= 0 {
		count = DefaultCount
	}

	return []string{"-p", "err", "-n", strconv.Itoa(count), "--no-pager"}
}

// WindowsArgs returns the wevtutil arguments selecting the last count error events.
func WindowsArgs(count int) []string {
	if count <= 0 {
		count = DefaultCount
	}

	return []string{"qe", "System", "/q:*[System[(Level=2)]]", "/c:" + strconv.Itoa(count), "/rd:true", "/f:xml"}
}

// Errors returns the most recent error entries, oldest first.
func (j *Journal) Errors(ctx context.Context, count int) ([]string, error) {
	switch j.goos {
	case "linux":
		out, err := j.run(ctx, j.Binary, Args(count)...)
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", j.Binary, err)
		}

		return parseEntries(out), nil
	case "windows":
		out, err := j.run(ctx, j.Binary, WindowsArgs(count)...)
		if err != nil {
			return nil, fmt.Errorf("running %s: %w", j.Binary, err)
		}

		events, err := parseEvents(out)
		if err != nil {
			return nil, err
		}

		// wevtutil lists newest first.
		slices.Reverse(events)

		return formatEvents(events), nil
	default:
		return nil, ErrUnsupported
	}
}

// SearchEvents returns the Windows System log events with a data value containing term,
// newest first.
func (j *Journal) SearchEvents(ctx context.Context, term string) ([]string, error) {
	if j.goos != "windows" {
		return nil, ErrUnsupported
	}

	out, err := j.run(ctx, j.Binary, "qe", "System", "/rd:true", "/f:xml")
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", j.Binary, err)
	}

	events, err := parseEvents(out)
	if err != nil {
		return nil, err
	}

	matched := events[:0]

	for _, ev := range events {
		if slices.ContainsFunc(ev.Data, func(d eventData) bool { return strings.Contains(d.Value, term) }) {
			matched = append(matched, ev)
		}
	}

	return formatEvents(matched), nil
}

func parseEntries(out []byte) []string {
	entries := []string{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		// journalctl marks empty results and boot boundaries with "-- ... --" lines.
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "-- ") {
			continue
		}

		entries = append(entries, line)
	}

	return entries
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}

		return nil, err
	}

	return out, nil
}

// SearchLogs finds log files under dir whose names contain term. Full paths are returned.
func SearchLogs(ctx context.Context, dir, term string, excludes []string) (*search.Result, error) {
	return search.Run(ctx, search.Options{
		Path:         dir,
		Term:         term,
		ShowFullPath: true,
		Excludes:     excludes,
	})
}
