//go:build !windows
// +build !windows

package filesystem

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/vertextoedge/easy-file-system/internal/port"
)

// GetDiskUsage returns disk usage for the document directory
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(m.dirs.Document, &stat); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	total := uint64(stat.Blocks) * uint64(stat.Bsize)
	free := uint64(stat.Bavail) * uint64(stat.Bsize)
	used := total - free

	usage := &port.DiskUsage{
		Total: total,
		Used:  used,
		Free:  free,
	}
	if total > 0 {
		usage.UsedPct = float64(used) / float64(total) * 100
	}
	return usage, nil
}

func accessPermissions(path string) port.Permission {
	perm := port.PermissionNone
	if unix.Access(path, unix.R_OK) == nil {
		perm |= port.PermissionRead
	}
	if unix.Access(path, unix.W_OK) == nil {
		perm |= port.PermissionWrite
	}
	return perm
}
