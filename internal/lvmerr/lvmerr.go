// Package lvmerr holds the domain error taxonomy raised by the lvm cache and
// command engine. Each kind is a distinct comparable struct so callers can
// discriminate failures with errors.As instead of string matching, in the
// spirit of the command.ErrNotFound sentinel this package generalizes from.
package lvmerr

import "fmt"

// ErrNotFound is a generic "lvm object not found" sentinel. The engine's
// lookups do not return it: a lookup that yields no record after reload
// returns the entity-specific kind (VolumeGroupDoesNotExist,
// LogicalVolumeDoesNotExistError, InaccessiblePhysDev), none of which wraps it.
var ErrNotFound = fmt.Errorf("lvm object not found")

// InvalidOutputLine is raised when a parsed command output line does not
// have the expected field count for its command.
type InvalidOutputLine struct {
	Command string
	Line    string
}

func (e *InvalidOutputLine) Error() string {
	return fmt.Sprintf("invalid output line for %q: %q", e.Command, e.Line)
}

// VolumeGroupDoesNotExist is raised when a VG lookup resolves to nothing.
type VolumeGroupDoesNotExist struct {
	VG string
}

func (e *VolumeGroupDoesNotExist) Error() string {
	return fmt.Sprintf("volume group %q does not exist", e.VG)
}

// LogicalVolumeDoesNotExistError is raised when an LV lookup resolves to nothing.
type LogicalVolumeDoesNotExistError struct {
	VG string
	LV string
}

func (e *LogicalVolumeDoesNotExistError) Error() string {
	return fmt.Sprintf("logical volume %s/%s does not exist", e.VG, e.LV)
}

// InaccessiblePhysDev is raised when a PV lookup resolves to nothing or the
// device cannot be read.
type InaccessiblePhysDev struct {
	Device string
}

func (e *InaccessiblePhysDev) Error() string {
	return fmt.Sprintf("physical device %q is inaccessible", e.Device)
}

// PhysDevInitializationError wraps a failed pvcreate.
type PhysDevInitializationError struct {
	Devices []string
	Err     error
}

func (e *PhysDevInitializationError) Error() string {
	return fmt.Sprintf("could not initialize physical devices %v: %v", e.Devices, e.Err)
}

func (e *PhysDevInitializationError) Unwrap() error { return e.Err }

// VolumeGroupCreateError wraps a failed vgcreate.
type VolumeGroupCreateError struct {
	VG  string
	Err error
}

func (e *VolumeGroupCreateError) Error() string {
	return fmt.Sprintf("could not create volume group %q: %v", e.VG, e.Err)
}

func (e *VolumeGroupCreateError) Unwrap() error { return e.Err }

// VolumeGroupExtendError wraps a failed vgextend.
type VolumeGroupExtendError struct {
	VG  string
	Err error
}

func (e *VolumeGroupExtendError) Error() string {
	return fmt.Sprintf("could not extend volume group %q: %v", e.VG, e.Err)
}

func (e *VolumeGroupExtendError) Unwrap() error { return e.Err }

// VolumeGroupReduceError wraps a failed vgreduce.
type VolumeGroupReduceError struct {
	VG  string
	Err error
}

func (e *VolumeGroupReduceError) Error() string {
	return fmt.Sprintf("could not reduce volume group %q: %v", e.VG, e.Err)
}

func (e *VolumeGroupReduceError) Unwrap() error { return e.Err }

// VolumeGroupRemoveError wraps a failed vgremove.
type VolumeGroupRemoveError struct {
	VG  string
	Err error
}

func (e *VolumeGroupRemoveError) Error() string {
	return fmt.Sprintf("could not remove volume group %q: %v", e.VG, e.Err)
}

func (e *VolumeGroupRemoveError) Unwrap() error { return e.Err }

// CannotCreateLogicalVolume wraps a failed lvcreate.
type CannotCreateLogicalVolume struct {
	VG, LV string
	Err    error
}

func (e *CannotCreateLogicalVolume) Error() string {
	return fmt.Sprintf("cannot create logical volume %s/%s: %v", e.VG, e.LV, e.Err)
}

func (e *CannotCreateLogicalVolume) Unwrap() error { return e.Err }

// CannotRemoveLogicalVolume wraps a failed lvremove.
type CannotRemoveLogicalVolume struct {
	VG  string
	LVs []string
	Err error
}

func (e *CannotRemoveLogicalVolume) Error() string {
	return fmt.Sprintf("cannot remove logical volumes %v from %q: %v", e.LVs, e.VG, e.Err)
}

func (e *CannotRemoveLogicalVolume) Unwrap() error { return e.Err }

// LogicalVolumeExtendError is raised when lvextend fails and the post-failure
// reload shows the volume still short of the requested extent count.
type LogicalVolumeExtendError struct {
	VG, LV        string
	RequiredExtra int
	FreeExtents   int
}

func (e *LogicalVolumeExtendError) Error() string {
	return fmt.Sprintf("cannot extend %s/%s: needs %d more extents, only %d free", e.VG, e.LV, e.RequiredExtra, e.FreeExtents)
}

// LogicalVolumeReduceError wraps a failed lvreduce.
type LogicalVolumeReduceError struct {
	VG, LV string
	Err    error
}

func (e *LogicalVolumeReduceError) Error() string {
	return fmt.Sprintf("cannot reduce %s/%s: %v", e.VG, e.LV, e.Err)
}

func (e *LogicalVolumeReduceError) Unwrap() error { return e.Err }

// LogicalVolumeRefreshError wraps a failed lvchange --refresh.
type LogicalVolumeRefreshError struct {
	VG  string
	LVs []string
	Err error
}

func (e *LogicalVolumeRefreshError) Error() string {
	return fmt.Sprintf("cannot refresh %v in %q: %v", e.LVs, e.VG, e.Err)
}

func (e *LogicalVolumeRefreshError) Unwrap() error { return e.Err }

// LogicalVolumeRenameError wraps a failed lvrename.
type LogicalVolumeRenameError struct {
	VG, Old, New string
	Err          error
}

func (e *LogicalVolumeRenameError) Error() string {
	return fmt.Sprintf("cannot rename %s/%s to %s: %v", e.VG, e.Old, e.New, e.Err)
}

func (e *LogicalVolumeRenameError) Unwrap() error { return e.Err }

// CannotActivateLogicalVolumes wraps a failed lvchange --available y.
type CannotActivateLogicalVolumes struct {
	VG  string
	LVs []string
	Err error
}

func (e *CannotActivateLogicalVolumes) Error() string {
	return fmt.Sprintf("cannot activate %v in %q: %v", e.LVs, e.VG, e.Err)
}

func (e *CannotActivateLogicalVolumes) Unwrap() error { return e.Err }

// CannotDeactivateLogicalVolumes wraps a failed lvchange --available n. Holders
// attaches, per device path that could not be deactivated, the list of
// processes reported to be holding it open (supplied by the external
// process-listing collaborator, out of scope for this package).
type CannotDeactivateLogicalVolumes struct {
	VG      string
	LVs     []string
	Err     error
	Holders map[string][]string
}

func (e *CannotDeactivateLogicalVolumes) Error() string {
	return fmt.Sprintf("cannot deactivate %v in %q: %v (holders: %v)", e.LVs, e.VG, e.Err, e.Holders)
}

func (e *CannotDeactivateLogicalVolumes) Unwrap() error { return e.Err }

// CouldNotResizePhysicalVolume wraps a failed pvresize.
type CouldNotResizePhysicalVolume struct {
	GUID string
	Err  error
}

func (e *CouldNotResizePhysicalVolume) Error() string {
	return fmt.Sprintf("could not resize physical volume %q: %v", e.GUID, e.Err)
}

func (e *CouldNotResizePhysicalVolume) Unwrap() error { return e.Err }

// CouldNotMovePVData wraps a failed pvmove.
type CouldNotMovePVData struct {
	Src  string
	Dsts []string
	Err  error
}

func (e *CouldNotMovePVData) Error() string {
	return fmt.Sprintf("could not move data from %q to %v: %v", e.Src, e.Dsts, e.Err)
}

func (e *CouldNotMovePVData) Unwrap() error { return e.Err }

// LogicalVolumeReplaceTagError wraps a failed lvchange --addtag/--deltag.
type LogicalVolumeReplaceTagError struct {
	VG, LV string
	Err    error
}

func (e *LogicalVolumeReplaceTagError) Error() string {
	return fmt.Sprintf("cannot replace tags on %s/%s: %v", e.VG, e.LV, e.Err)
}

func (e *LogicalVolumeReplaceTagError) Unwrap() error { return e.Err }

// VolumeGroupReplaceTagError wraps a failed vgchange --addtag/--deltag.
type VolumeGroupReplaceTagError struct {
	VG  string
	Err error
}

func (e *VolumeGroupReplaceTagError) Error() string {
	return fmt.Sprintf("cannot replace tags on %q: %v", e.VG, e.Err)
}

func (e *VolumeGroupReplaceTagError) Unwrap() error { return e.Err }

// DeviceBlockSizeError is raised when createVG/extendVG devices do not share
// a uniform, supported block size.
type DeviceBlockSizeError struct {
	Devices []string
}

func (e *DeviceBlockSizeError) Error() string {
	return fmt.Sprintf("devices %v do not share a uniform supported block size", e.Devices)
}

// VolumeGroupBlockSizeError is raised when a device's block size does not
// match the VG it is being added to.
type VolumeGroupBlockSizeError struct {
	VG string
}

func (e *VolumeGroupBlockSizeError) Error() string {
	return fmt.Sprintf("device block size does not match volume group %q", e.VG)
}

// VolumeGroupSizeError is raised when a VG lacks the free extents required
// by a requested operation.
type VolumeGroupSizeError struct {
	VG string
}

func (e *VolumeGroupSizeError) Error() string {
	return fmt.Sprintf("volume group %q does not have enough free space", e.VG)
}

// UnreadableEntry is returned by attribute access on a cache entry whose
// reload has already failed once (the Unreadable variant).
type UnreadableEntry struct {
	Name string
}

func (e *UnreadableEntry) Error() string {
	return fmt.Sprintf("failed reload: %q is unreadable", e.Name)
}
