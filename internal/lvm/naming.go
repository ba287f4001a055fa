package lvm

import (
	"path"
	"strings"
)

// PVPrefix is the directory multipath guids are resolved against.
const PVPrefix = "/dev/mapper"

// VGExtentSize is the extent size new volume groups are created with.
const VGExtentSize = 128 * 1024 * 1024 // 128 MiB, matches the teacher's MiB-denominated lvcreate/lvresize sizing.

// ResolvePVName turns a bare multipath guid into its /dev/mapper path.
// Absolute paths pass through unchanged.
func ResolvePVName(nameOrGUID string) string {
	if strings.HasPrefix(nameOrGUID, "/") {
		return nameOrGUID
	}
	return path.Join(PVPrefix, nameOrGUID)
}

// GUID returns the basename of a PV device path, satisfying the invariant
// guid = basename(name).
func GUID(pvName string) string {
	return path.Base(pvName)
}

// extentsFor rounds byte sizes up to the next whole extent, for size
// arguments expressed in extents instead of raw bytes.
func extentsFor(sizeBytes, extentSize uint64) int {
	if extentSize == 0 {
		return 0
	}
	extents := sizeBytes / extentSize
	if sizeBytes%extentSize != 0 {
		extents++
	}
	return int(extents)
}
