package finder

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/shirou/gopsutil/v3/disk"
)

// DefaultDenylist contains mount points that are unreadable or irrelevant under WSL.
//
//nolint:gochecknoglobals // Config constant
var DefaultDenylist = []string{
	"/usr/lib/wsl/drivers",
	"/usr/lib/wsl/lib",
	"/mnt/wslg/distro",
	"/mnt/wslg/doc",
}

// VolumeLister enumerates the mount points of mounted volumes.
type VolumeLister interface {
	Mountpoints(ctx context.Context) ([]string, error)
}

// Partitions lists mounted volumes with gopsutil.
type Partitions struct {
	// All includes pseudo filesystems such as proc and sysfs.
	All bool
}

// Mountpoints returns the mount point of every partition.
func (p Partitions) Mountpoints(ctx context.Context) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, p.All)
	if err != nil {
		return nil, fmt.Errorf("listing partitions: %w", err)
	}

	mounts := make([]string, 0, len(parts))
	for _, part := range parts {
		mounts = append(mounts, part.Mountpoint)
	}

	return mounts, nil
}

// denied reports whether mount matches an entry of the denylist.
// Plain entries match the mount point itself or anything below it; entries containing
// glob metacharacters are matched with doublestar.
func denied(mount string, denylist []string) bool {
	mount = filepath.ToSlash(filepath.Clean(mount))

	for _, entry := range denylist {
		entry = filepath.ToSlash(entry)

		if strings.ContainsAny(entry, "*?[{") {
			if ok, err := doublestar.Match(entry, mount); err == nil && ok {
				return true
			}

			continue
		}

		entry = strings.TrimSuffix(entry, "/")
		if mount == entry || strings.HasPrefix(mount, entry+"/") {
			return true
		}
	}

	return false
}

// resolveRoots returns the explicit path, or every mounted volume not on the denylist.
// With volumes, mounts holds every cleaned mount point, denied ones included.
func resolveRoots(ctx context.Context, opt Options) (roots, mounts []string, err error) {
	if opt.Path != "" {
		return []string{filepath.Clean(opt.Path)}, nil, nil
	}

	listed, err := opt.Volumes.Mountpoints(ctx)
	if err != nil {
		return nil, nil, err
	}

	roots = make([]string, 0, len(listed))
	mounts = make([]string, 0, len(listed))

	seen := make(map[string]struct{}, len(listed))
	for _, m := range listed {
		m = filepath.Clean(m)

		if _, dup := seen[m]; dup {
			continue
		}

		seen[m] = struct{}{}
		mounts = append(mounts, m)

		if denied(m, opt.Denylist) {
			continue
		}

		roots = append(roots, m)
	}

	if len(roots) == 0 {
		return nil, nil, ErrNoRoots
	}

	return roots, mounts, nil
}
