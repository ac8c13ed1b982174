//go:build windows
// +build windows

package filesystem

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"

	"github.com/vertextoedge/easy-file-system/internal/port"
)

// GetDiskUsage returns disk usage for the document directory
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	var freeBytesAvailable, totalNumberOfBytes, totalNumberOfFreeBytes uint64

	pathPtr, err := windows.UTF16PtrFromString(m.dirs.Document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert path: %w", err)
	}

	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytesAvailable, &totalNumberOfBytes, &totalNumberOfFreeBytes); err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	used := totalNumberOfBytes - totalNumberOfFreeBytes

	usage := &port.DiskUsage{
		Total: totalNumberOfBytes,
		Used:  used,
		Free:  totalNumberOfFreeBytes,
	}
	if totalNumberOfBytes > 0 {
		usage.UsedPct = float64(used) / float64(totalNumberOfBytes) * 100
	}
	return usage, nil
}

func accessPermissions(path string) port.Permission {
	info, err := os.Stat(path)
	if err != nil {
		return port.PermissionNone
	}
	perm := port.PermissionRead
	if info.Mode().Perm()&0200 != 0 {
		perm |= port.PermissionWrite
	}
	return perm
}
