package sysinfo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Process is a point-in-time view of one running process.
type Process struct {
	PID        int32     `json:"pid"         yaml:"pid"`
	Name       string    `json:"name"        yaml:"name"`
	User       string    `json:"user"        yaml:"user"`
	CPUPercent float64   `json:"cpu_percent" yaml:"cpu_percent"`
	MemPercent float32   `json:"mem_percent" yaml:"mem_percent"`
	CreateTime time.Time `json:"create_time" yaml:"create_time"`
	Command    string    `json:"command"     yaml:"command"`
}

// Processes lists running processes ordered by CPU usage, highest first.
//
// Processes that exit while being read are dropped. Fields that cannot be read, such as the
// owner of a process in another namespace, are left empty.
func (c Collector) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	out := make([]Process, 0, len(procs))

	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}

		entry := Process{PID: p.Pid, Name: name}

		entry.User, _ = p.UsernameWithContext(ctx)
		entry.CPUPercent, _ = p.CPUPercentWithContext(ctx)
		entry.MemPercent, _ = p.MemoryPercentWithContext(ctx)
		entry.Command, _ = p.CmdlineWithContext(ctx)

		if created, err := p.CreateTimeWithContext(ctx); err == nil {
			entry.CreateTime = time.UnixMilli(created)
		}

		out = append(out, entry)
	}

	slices.SortStableFunc(out, func(a, b Process) int {
		if c := cmp.Compare(b.CPUPercent, a.CPUPercent); c != 0 {
			return c
		}

		return cmp.Compare(a.PID, b.PID)
	})

	return out, nil
}

// ErrInvalidPID is returned for process ids that can never name a process.
var ErrInvalidPID = errors.New("pid must be positive")

// Kill terminates the process with the given id. A process that has already exited is not an
// error.
func (c Collector) Kill(ctx context.Context, pid int32) error {
	if pid <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}

	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	running, err := p.IsRunningWithContext(ctx)
	if err != nil {
		return fmt.Errorf("checking process %d: %w", pid, err)
	}

	if !running {
		return nil
	}

	if err := p.KillWithContext(ctx); err != nil {
		return fmt.Errorf("killing process %d: %w", pid, err)
	}

	return nil
}
