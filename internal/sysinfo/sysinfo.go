// Package sysinfo reports host resources: CPUs, memory, network interfaces, processes and
// platform details. Everything is read through gopsutil so the same code serves the CLI and the
// HTTP API.
package sysinfo

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

// DefaultSampleInterval is how long CPU usage is measured for.
const DefaultSampleInterval = 200 * time.Millisecond

// CPU is the usage of one logical processor over the sample interval.
type CPU struct {
	Name      string  `json:"name"      yaml:"name"`
	Brand     string  `json:"brand"     yaml:"brand"`
	Frequency float64 `json:"frequency" yaml:"frequency"`
	Usage     float64 `json:"usage"     yaml:"usage"`
}

// Memory holds physical memory and swap figures in bytes.
type Memory struct {
	Total     uint64  `json:"total_memory"     yaml:"total_memory"`
	Free      uint64  `json:"free_memory"      yaml:"free_memory"`
	Available uint64  `json:"available_memory" yaml:"available_memory"`
	Used      uint64  `json:"used_memory"      yaml:"used_memory"`
	UsedPct   float64 `json:"used_percent"     yaml:"used_percent"`
	SwapTotal uint64  `json:"total_swap"       yaml:"total_swap"`
	SwapUsed  uint64  `json:"used_swap"        yaml:"used_swap"`
}

// Network holds per-interface traffic counters.
type Network struct {
	Name        string `json:"name"         yaml:"name"`
	MAC         string `json:"mac"          yaml:"mac"`
	BytesRecv   uint64 `json:"bytes_recv"   yaml:"bytes_recv"`
	BytesSent   uint64 `json:"bytes_sent"   yaml:"bytes_sent"`
	PacketsRecv uint64 `json:"packets_recv" yaml:"packets_recv"`
	PacketsSent uint64 `json:"packets_sent" yaml:"packets_sent"`
}

// Host describes the machine and operating system.
type Host struct {
	Hostname        string `json:"hostname"         yaml:"hostname"`
	OS              string `json:"os"               yaml:"os"`
	Platform        string `json:"platform"         yaml:"platform"`
	PlatformVersion string `json:"platform_version" yaml:"platform_version"`
	KernelVersion   string `json:"kernel_version"   yaml:"kernel_version"`
	Arch            string `json:"arch"             yaml:"arch"`
	Uptime          uint64 `json:"uptime_seconds"   yaml:"uptime_seconds"`
	CPUs            int    `json:"cpus"             yaml:"cpus"`
}

// Collector reads host information. The zero value samples CPU usage for
// DefaultSampleInterval.
type Collector struct {
	SampleInterval time.Duration
}

func (c Collector) interval() time.Duration {
	if c.SampleInterval <= 0 {
		return DefaultSampleInterval
	}

	return c.SampleInterval
}

// CPUs measures per-CPU usage over the sample interval.
func (c Collector) CPUs(ctx context.Context) ([]CPU, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cpu info: %w", err)
	}

	usage, err := cpu.PercentWithContext(ctx, c.interval(), true)
	if err != nil {
		return nil, fmt.Errorf("measuring cpu usage: %w", err)
	}

	cpus := make([]CPU, 0, len(usage))

	for i, pct := range usage {
		entry := CPU{Name: fmt.Sprintf("cpu%d", i), Usage: pct}

		// Some platforms report a single info entry for all logical CPUs.
		if len(infos) > 0 {
			info := infos[min(i, len(infos)-1)]
			entry.Brand = info.ModelName
			entry.Frequency = info.Mhz
		}

		cpus = append(cpus, entry)
	}

	return cpus, nil
}

// Memory reads physical memory and swap usage.
func (c Collector) Memory(ctx context.Context) (*Memory, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading memory: %w", err)
	}

	m := &Memory{
		Total:     vm.Total,
		Free:      vm.Free,
		Available: vm.Available,
		Used:      vm.Used,
		UsedPct:   vm.UsedPercent,
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		m.SwapTotal = swap.Total
		m.SwapUsed = swap.Used
	}

	return m, nil
}

// Networks reads traffic counters for every interface.
func (c Collector) Networks(ctx context.Context) ([]Network, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("reading network counters: %w", err)
	}

	macs := map[string]string{}

	if ifaces, err := net.InterfacesWithContext(ctx); err == nil {
		for _, iface := range ifaces {
			macs[iface.Name] = iface.HardwareAddr
		}
	}

	networks := make([]Network, 0, len(counters))

	for _, ctr := range counters {
		networks = append(networks, Network{
			Name:        ctr.Name,
			MAC:         macs[ctr.Name],
			BytesRecv:   ctr.BytesRecv,
			BytesSent:   ctr.BytesSent,
			PacketsRecv: ctr.PacketsRecv,
			PacketsSent: ctr.PacketsSent,
		})
	}

	return networks, nil
}

// Host reads platform details.
func (c Collector) Host(ctx context.Context) (*Host, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading host info: %w", err)
	}

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("counting cpus: %w", err)
	}

	return &Host{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Arch:            info.KernelArch,
		Uptime:          info.Uptime,
		CPUs:            count,
	}, nil
}
