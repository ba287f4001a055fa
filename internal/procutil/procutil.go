// Package procutil backs the small filesystem side-channels the
// specification names directly: whether an LV's device node exists, and
// which dm-N device backs it. It prefers golang.org/x/sys/unix over os.Stat
// so the distinction between "missing" (ENOENT) and "present but
// inaccessible" (EACCES) survives, the way the pack favors direct syscalls
// for precise errno handling over higher-level stdlib wrappers.
package procutil

import (
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/sys/unix"
)

// LVDevicePath returns the device node path for a logical volume, per the
// specification's "/dev/<vg>/<lv>" convention.
func LVDevicePath(vg, lv string) string {
	return path.Join("/dev", vg, lv)
}

// DMName returns the device-mapper name for a logical volume, per the
// specification's "<vg with '-' doubled>-<lv>" convention.
func DMName(vg, lv string) string {
	return strings.ReplaceAll(vg, "-", "--") + "-" + lv
}

// IsLVActive reports whether the LV's device node currently exists and is
// accessible. A missing node (ENOENT) is treated as "not active"; any other
// stat error is returned so callers can distinguish a permissions problem
// from genuine absence.
func IsLVActive(vg, lv string) (bool, error) {
	p := LVDevicePath(vg, lv)
	if err := unix.Access(p, unix.F_OK); err != nil {
		if err == unix.ENOENT {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", p, err)
	}
	return true, nil
}

// ResolveDMDevice reads the symlink at /dev/<vg>/<lv> and returns the
// trailing dm-N component it resolves to.
func ResolveDMDevice(vg, lv string) (string, error) {
	p := LVDevicePath(vg, lv)
	target, err := os.Readlink(p)
	if err != nil {
		return "", fmt.Errorf("readlink %s: %w", p, err)
	}
	return path.Base(target), nil
}

// Chown changes the owning uid/gid of an LV's device node, used after
// activating a newly created LV for a non-root consumer.
func Chown(vg, lv string, uid, gid int) error {
	p := LVDevicePath(vg, lv)
	if err := os.Chown(p, uid, gid); err != nil {
		return fmt.Errorf("chown %s: %w", p, err)
	}
	return nil
}
