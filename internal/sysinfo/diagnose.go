package sysinfo

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Snapshot is a combined diagnostic view of the host.
type Snapshot struct {
	Host        *Host     `json:"host"         yaml:"host"`
	Memory      *Memory   `json:"memory"       yaml:"memory"`
	Networks    []Network `json:"networks"     yaml:"networks"`
	Processes   []Process `json:"processes"    yaml:"processes"`
	CollectedAt time.Time `json:"collected_at" yaml:"collected_at"`
}

// Diagnose collects host, memory, network and process information concurrently.
func (c Collector) Diagnose(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{CollectedAt: time.Now().UTC()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h, err := c.Host(ctx)
		snap.Host = h

		return err
	})

	g.Go(func() error {
		m, err := c.Memory(ctx)
		snap.Memory = m

		return err
	})

	g.Go(func() error {
		n, err := c.Networks(ctx)
		snap.Networks = n

		return err
	})

	g.Go(func() error {
		p, err := c.Processes(ctx)
		snap.Processes = p

		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return snap, nil
}
