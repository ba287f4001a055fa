package lvm

import "fmt"

// Locking types per the GLOSSARY: 1 = local file-based read/write, 4 = read-only.
const (
	LockingTypeReadWrite = 1
	LockingTypeReadOnly  = 4
)

// RenderConfig implements the Config Renderer (§4.2): a pure function from
// (filter, locking mode) to the single-line --config blob.
func RenderConfig(filter string, lockingType int) string {
	return fmt.Sprintf(
		`devices{ preferred_names=["^/dev/mapper/"] ignore_suspended_devices=1 write_cache_state=0 disable_after_error_count=3 filter=%s hints="none" obtain_device_list_from_udev=0 } global { locking_type=%d prioritise_write_locks=1 wait_for_locks=1 use_lvmetad=0 } backup { retain_min=50 retain_days=0 }`,
		filter, lockingType,
	)
}

// lockingTypeFor renders LockingTypeReadOnly iff readOnly, else LockingTypeReadWrite.
func lockingTypeFor(readOnly bool) int {
	if readOnly {
		return LockingTypeReadOnly
	}
	return LockingTypeReadWrite
}
