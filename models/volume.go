//go:build !windows

package models

import (
	"fmt"
	"syscall"
)

// Volume reports the free and total space of the disk holding the
// harvest directory. The harvest stage uses it to decide, before any
// download starts, whether an entire batch of deposits will fit
// without starving the volume. We want to find out up front, not
// after filling the disk with half a batch.
type Volume struct {
	path string
}

// NewVolume returns a Volume for the disk holding path. The path may
// be a subdirectory inside the mounted volume; the stats are always
// for the volume itself.
func NewVolume(path string) *Volume {
	return &Volume{path: path}
}

func (volume *Volume) Path() string {
	return volume.path
}

// FreeSpace returns the bytes currently available to unprivileged
// users on the volume, straight from statfs.
func (volume *Volume) FreeSpace() (uint64, error) {
	stat := &syscall.Statfs_t{}
	if err := syscall.Statfs(volume.path, stat); err != nil {
		return 0, fmt.Errorf("cannot stat volume at %s: %v", volume.path, err)
	}
	return uint64(stat.Bsize) * stat.Bavail, nil
}

// TotalSpace returns the size of the volume in bytes.
func (volume *Volume) TotalSpace() (uint64, error) {
	stat := &syscall.Statfs_t{}
	if err := syscall.Statfs(volume.path, stat); err != nil {
		return 0, fmt.Errorf("cannot stat volume at %s: %v", volume.path, err)
	}
	return uint64(stat.Bsize) * stat.Blocks, nil
}
