package lvm

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/invatu/lvmengine/internal/lvmerr"
	"github.com/invatu/lvmengine/internal/lvmlog"
	"github.com/invatu/lvmengine/internal/procutil"
)

// DeviceActiveSource is the §6 filesystem side-channel collaborator:
// whether an LV's device node currently exists on disk. Wired to
// procutil.IsLVActive in production so a stale attr cache can't mask a real
// on-disk state change; left nil, activateLVs/deactivateLVs fall back to
// the cached lv_attr state alone.
type DeviceActiveSource func(vg, lv string) (bool, error)

// BlockSizeSource is the out-of-scope block-size-probing collaborator
// (§1 getDeviceBlockSizes): it returns the logical block size in bytes for
// each device path it can resolve. createVG/extendVG use it to check that
// the devices' block sizes agree; whether a size is a supported one is not
// checked. Left unwired, the check is skipped.
type BlockSizeSource func(devs []string) (map[string]uint64, error)

// Ops is the Public Operations façade of §4.8: it composes the Cache
// Engine, the parsers and the naming helpers with the invalidation
// discipline the spec prescribes after every mutation. Ops holds no state
// of its own beyond the Engine handle and the bootstrap-time filesystem
// roots, matching §9's "explicit engine handle" decision.
type Ops struct {
	Engine *Engine

	// StorageRoot is P_VDSM_STORAGE (§4.8 bootstrap, §6 filesystem side
	// channels): prepared images live under StorageRoot/<vg>/*/*.
	StorageRoot string

	blockSizes   BlockSizeSource
	deviceActive DeviceActiveSource
}

// NewOps constructs a Public Operations façade around an already-built
// Engine.
func NewOps(engine *Engine, storageRoot string) *Ops {
	return &Ops{Engine: engine, StorageRoot: storageRoot}
}

// WithBlockSizeSource wires the block-size probing collaborator (as
// NewEngine does for multipath/allowlist), enabling createVG/extendVG's
// block-size precondition.
func (o *Ops) WithBlockSizeSource(src BlockSizeSource) *Ops {
	o.blockSizes = src
	return o
}

// WithDeviceActiveSource wires the §6 device-node existence check into
// activateLVs/deactivateLVs's active/inactive partition.
func (o *Ops) WithDeviceActiveSource(src DeviceActiveSource) *Ops {
	o.deviceActive = src
	return o
}

// CreateVG implements createVG(vg, devs, tag, mdSize, force) (§4.8).
func (o *Ops) CreateVG(ctx context.Context, vg string, devs []string, tag string, mdSizeBytes uint64, force bool) error {
	if _, err := o.uniformBlockSize(devs); err != nil {
		return err
	}

	if err := o.pvCreate(ctx, devs, mdSizeBytes, force); err != nil {
		return &lvmerr.PhysDevInitializationError{Devices: devs, Err: err}
	}

	if len(devs) > 0 {
		argv := []string{"pvchange", "--metadataignore", "n", ResolvePVName(devs[0])}
		if rc, _, errLines, err := o.Engine.runWrite(ctx, argv, devs[:1]); err != nil || rc != 0 {
			o.invalidatePVs(devs)
			return &lvmerr.VolumeGroupCreateError{VG: vg, Err: wrapErr(err, rc, errLines)}
		}
	}

	argv := []string{"vgcreate", "-s", fmt.Sprintf("%db", VGExtentSize)}
	if tag != "" {
		argv = append(argv, "--addtag", tag)
	}
	argv = append(argv, vg)
	for _, d := range devs {
		argv = append(argv, ResolvePVName(d))
	}

	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, devs)
	o.invalidatePVs(devs)
	o.Engine.InvalidateVG(vg)
	if err != nil || rc != 0 {
		return &lvmerr.VolumeGroupCreateError{VG: vg, Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

func (o *Ops) pvCreate(ctx context.Context, devs []string, mdSizeBytes uint64, force bool) error {
	if len(devs) == 0 {
		return nil
	}
	argv := []string{"pvcreate"}
	if mdSizeBytes > 0 {
		argv = append(argv, "--metadatasize", fmt.Sprintf("%db", mdSizeBytes))
	}
	if force {
		argv = append(argv, "-y", "-ff")
	}
	for _, d := range devs {
		argv = append(argv, ResolvePVName(d))
	}
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, devs)
	if err != nil {
		return err
	}
	if rc != 0 {
		return fmt.Errorf("pvcreate failed: %s", strings.Join(errLines, "; "))
	}
	return nil
}

func (o *Ops) invalidatePVs(devs []string) {
	for _, d := range devs {
		o.Engine.InvalidatePV(ResolvePVName(d))
	}
}

// uniformBlockSize checks that the block sizes of devs agree (§4.8
// createVG/extendVG precondition), returning the common size. It does not
// check whether that size is supported, and devices missing from the
// source's result are ignored. A nil BlockSizeSource (or an empty devs
// list) skips the check.
func (o *Ops) uniformBlockSize(devs []string) (uint64, error) {
	if o.blockSizes == nil || len(devs) == 0 {
		return 0, nil
	}
	sizes, err := o.blockSizes(devs)
	if err != nil {
		return 0, err
	}
	var size uint64
	for _, d := range devs {
		s, ok := sizes[d]
		if !ok {
			continue
		}
		if size == 0 {
			size = s
			continue
		}
		if s != size {
			return 0, &lvmerr.DeviceBlockSizeError{Devices: devs}
		}
	}
	return size, nil
}

// vgBlockSize enforces extendVG's device-joins-VG precondition (§4.8): the
// new devices' uniform block size, if known, must match the block size of
// the VG's existing PVs.
func (o *Ops) vgBlockSize(vg string, existingPVNames []string, newSize uint64) error {
	if o.blockSizes == nil || newSize == 0 || len(existingPVNames) == 0 {
		return nil
	}
	sizes, err := o.blockSizes(existingPVNames)
	if err != nil {
		return err
	}
	for _, pv := range existingPVNames {
		if s, ok := sizes[pv]; ok && s != newSize {
			return &lvmerr.VolumeGroupBlockSizeError{VG: vg}
		}
	}
	return nil
}

// RemoveVG implements removeVG(vg) (§4.8): best-effort deactivate then
// vgremove -f; on failure the VG is re-marked Stale rather than removed so
// the next read re-examines it.
func (o *Ops) RemoveVG(ctx context.Context, vg string) error {
	if lvs, err := o.Engine.GetLVsInVG(ctx, vg); err == nil && len(lvs) > 0 {
		names := make([]string, 0, len(lvs))
		for _, lv := range lvs {
			names = append(names, lv.Name)
		}
		_ = o.DeactivateLVs(ctx, vg, names)
	}

	rc, _, errLines, err := o.Engine.runWrite(ctx, []string{"vgremove", "-f", vg}, nil)

	if cachedVG, ok := o.Engine.store.vgEntry(vg); ok {
		o.invalidatePVs(cachedVG.record.PVNames)
	}

	if err != nil || rc != 0 {
		o.Engine.InvalidateVG(vg)
		return &lvmerr.VolumeGroupRemoveError{VG: vg, Err: wrapErr(err, rc, errLines)}
	}
	o.Engine.RemoveVG(vg)
	return nil
}

// ExtendVG implements extendVG(vg, devs, force) (§4.8).
func (o *Ops) ExtendVG(ctx context.Context, vg string, devs []string, force bool) error {
	cachedVG, err := o.Engine.GetVG(ctx, vg)
	if err != nil {
		return err
	}
	for _, d := range devs {
		resolved := ResolvePVName(d)
		for _, existing := range cachedVG.PVNames {
			if existing == resolved {
				return &lvmerr.VolumeGroupExtendError{VG: vg, Err: fmt.Errorf("%s is already a member of %s", resolved, vg)}
			}
		}
	}

	newSize, err := o.uniformBlockSize(devs)
	if err != nil {
		return err
	}
	if err := o.vgBlockSize(vg, cachedVG.PVNames, newSize); err != nil {
		return err
	}

	if err := o.pvCreate(ctx, devs, cachedVG.MDASize, force); err != nil {
		return &lvmerr.PhysDevInitializationError{Devices: devs, Err: err}
	}

	argv := []string{"vgextend", vg}
	for _, d := range devs {
		argv = append(argv, ResolvePVName(d))
	}
	rc, _, errLines, runErr := o.Engine.runWrite(ctx, argv, devs)
	o.invalidatePVs(devs)
	o.Engine.InvalidateVG(vg)
	if runErr != nil || rc != 0 {
		return &lvmerr.VolumeGroupExtendError{VG: vg, Err: wrapErr(runErr, rc, errLines)}
	}
	return nil
}

// ReduceVG implements reduceVG(vg, dev) (§4.8).
func (o *Ops) ReduceVG(ctx context.Context, vg, dev string) error {
	resolved := ResolvePVName(dev)
	rc, _, errLines, err := o.Engine.runWrite(ctx, []string{"vgreduce", vg, resolved}, []string{dev})
	o.Engine.InvalidatePV(resolved)
	o.Engine.InvalidateVG(vg)
	if err != nil || rc != 0 {
		return &lvmerr.VolumeGroupReduceError{VG: vg, Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

// CreateLVOptions groups createLV's optional parameters (§4.8).
type CreateLVOptions struct {
	Activate   bool
	Contiguous bool
	Tags       []string
	Device     string
	OwnerUID   int
	OwnerGID   int
}

// CreateLV implements createLV(vg, lv, size_mb, activate, contiguous, tags, dev?) (§4.8).
func (o *Ops) CreateLV(ctx context.Context, vg, lv string, sizeMB uint64, opts CreateLVOptions) error {
	if cachedVG, err := o.Engine.GetVG(ctx, vg); err == nil {
		requestedExtents := extentsFor(sizeMB*1024*1024, cachedVG.ExtentSize)
		if requestedExtents > cachedVG.FreeCount {
			return &lvmerr.VolumeGroupSizeError{VG: vg}
		}
	}

	argv := []string{"lvcreate", "--name", lv, "--size", fmt.Sprintf("%dm", sizeMB)}
	if opts.Contiguous {
		argv = append(argv, "--contiguous", "y")
	}
	for _, t := range opts.Tags {
		argv = append(argv, "--addtag", t)
	}
	argv = append(argv, vg)
	var devices []string
	if opts.Device != "" {
		argv = append(argv, ResolvePVName(opts.Device))
		devices = []string{opts.Device}
	}

	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, devices)
	o.Engine.InvalidateVG(vg)
	o.Engine.InvalidateLV(vg, lv)
	if err != nil || rc != 0 {
		return &lvmerr.CannotCreateLogicalVolume{VG: vg, LV: lv, Err: wrapErr(err, rc, errLines)}
	}

	if opts.Activate {
		if err := o.ActivateLVs(ctx, vg, []string{lv}, true); err != nil {
			return err
		}
		if err := o.chownDevice(vg, lv, opts.OwnerUID, opts.OwnerGID); err != nil {
			lvmlog.FromContext(ctx).Info("chown of new lv device failed", "vg", vg, "lv", lv, "error", err)
		}
	} else {
		return o.DeactivateLVs(ctx, vg, []string{lv})
	}
	return nil
}

func (o *Ops) chownDevice(vg, lv string, uid, gid int) error {
	if uid == 0 && gid == 0 {
		return nil
	}
	return procutil.Chown(vg, lv, uid, gid)
}

// RemoveLVs implements removeLVs(vg, lvs) (§4.8).
func (o *Ops) RemoveLVs(ctx context.Context, vg string, lvs []string) error {
	var activeNames []string
	for _, lv := range lvs {
		if entry, ok := o.Engine.store.lvEntry(LVKey{VG: vg, LV: lv}); ok && !entry.isStale() && entry.record.Active() {
			activeNames = append(activeNames, lv)
		}
	}
	if len(activeNames) > 0 {
		lvmlog.FromContext(ctx).Info("removing active logical volumes", "vg", vg, "lvs", activeNames)
	}

	argv := []string{"lvremove", "-f"}
	for _, lv := range lvs {
		argv = append(argv, vg+"/"+lv)
	}
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, nil)
	if err != nil || rc != 0 {
		for _, lv := range lvs {
			o.Engine.InvalidateLV(vg, lv)
		}
		return &lvmerr.CannotRemoveLogicalVolume{VG: vg, LVs: lvs, Err: wrapErr(err, rc, errLines)}
	}
	for _, lv := range lvs {
		o.Engine.RemoveLV(vg, lv)
	}
	o.Engine.InvalidateVG(vg)
	return nil
}

// ExtendLV implements extendLV(vg, lv, size_mb) (§4.8): idempotent when the
// LV already meets the requested size, and on failure reloads to
// distinguish "already satisfied" from a genuine space shortfall.
func (o *Ops) ExtendLV(ctx context.Context, vg, lv string, sizeMB uint64) error {
	cur, err := o.Engine.GetLV(ctx, vg, lv)
	if err != nil {
		return err
	}
	requestedBytes := sizeMB * 1024 * 1024
	if cur.Size >= requestedBytes {
		return nil
	}

	rc, _, errLines, runErr := o.Engine.runWrite(ctx, []string{"lvextend", "--size", fmt.Sprintf("%dm", sizeMB), vg + "/" + lv}, nil)
	o.Engine.InvalidateVG(vg)
	o.Engine.InvalidateLV(vg, lv)
	if runErr == nil && rc == 0 {
		return nil
	}

	refreshed, rerr := o.Engine.GetLV(ctx, vg, lv)
	if rerr == nil && refreshed.Size >= requestedBytes {
		return nil
	}

	vgRec, verr := o.Engine.GetVG(ctx, vg)
	if verr == nil {
		cachedVG := vgRec
		extentsNeeded := extentsFor(requestedBytes-refreshed.Size, cachedVG.ExtentSize)
		return &lvmerr.LogicalVolumeExtendError{VG: vg, LV: lv, RequiredExtra: extentsNeeded, FreeExtents: cachedVG.FreeCount}
	}
	return &lvmerr.LogicalVolumeExtendError{VG: vg, LV: lv, RequiredExtra: 0, FreeExtents: 0}
}

// ReduceLV implements reduceLV(vg, lv, size_mb, force) (§4.8): idempotent
// when the LV is already at or below the requested size.
func (o *Ops) ReduceLV(ctx context.Context, vg, lv string, sizeMB uint64, force bool) error {
	cur, err := o.Engine.GetLV(ctx, vg, lv)
	if err != nil {
		return err
	}
	requestedBytes := sizeMB * 1024 * 1024
	if cur.Size <= requestedBytes {
		return nil
	}

	argv := []string{"lvreduce"}
	if force {
		argv = append(argv, "--force")
	}
	argv = append(argv, "--size", fmt.Sprintf("%dm", sizeMB), vg+"/"+lv)

	rc, _, errLines, runErr := o.Engine.runWrite(ctx, argv, nil)
	o.Engine.InvalidateVG(vg)
	o.Engine.InvalidateLV(vg, lv)
	if runErr != nil || rc != 0 {
		return &lvmerr.LogicalVolumeReduceError{VG: vg, LV: lv, Err: wrapErr(runErr, rc, errLines)}
	}
	return nil
}

// ActivateLVs implements activateLVs(vg, lvs, refresh) (§4.8): partitions
// the set into already-active and inactive, refreshing the former (if
// requested) and activating the latter.
func (o *Ops) ActivateLVs(ctx context.Context, vg string, lvs []string, refresh bool) error {
	var active, inactive []string
	for _, lv := range lvs {
		isActive, err := o.lvActiveNow(ctx, vg, lv)
		if err != nil {
			return err
		}
		if isActive {
			active = append(active, lv)
		} else {
			inactive = append(inactive, lv)
		}
	}

	if refresh && len(active) > 0 {
		if err := o.refresh(ctx, vg, active); err != nil {
			return err
		}
	}
	if len(inactive) > 0 {
		if err := o.setAvailability(ctx, vg, inactive, true); err != nil {
			return err
		}
	}
	return nil
}

// DeactivateLVs implements deactivateLVs(vg, lvs) (§4.8): only the
// currently-active subset is passed to lvchange.
func (o *Ops) DeactivateLVs(ctx context.Context, vg string, lvs []string) error {
	var active []string
	for _, lv := range lvs {
		isActive, err := o.lvActiveNow(ctx, vg, lv)
		if err != nil {
			return err
		}
		if isActive {
			active = append(active, lv)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return o.setAvailability(ctx, vg, active, false)
}

// lvActiveNow reports whether lv is currently active. When a
// DeviceActiveSource is wired, the device node's existence is authoritative
// per §6 (it can't be masked by a stale attr cache); otherwise this falls
// back to the cached lv_attr state.
func (o *Ops) lvActiveNow(ctx context.Context, vg, lv string) (bool, error) {
	rec, err := o.Engine.GetLV(ctx, vg, lv)
	if err != nil {
		return false, err
	}
	if o.deviceActive != nil {
		if active, ferr := o.deviceActive(vg, lv); ferr == nil {
			return active, nil
		}
	}
	return rec.Active(), nil
}

func (o *Ops) refresh(ctx context.Context, vg string, lvs []string) error {
	argv := []string{"lvchange", "--refresh"}
	for _, lv := range lvs {
		argv = append(argv, vg+"/"+lv)
	}
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, nil)
	for _, lv := range lvs {
		o.Engine.InvalidateLV(vg, lv)
	}
	if err != nil || rc != 0 {
		return &lvmerr.LogicalVolumeRefreshError{VG: vg, LVs: lvs, Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

// setAvailability is _setLVAvailability (§4.8): converts a generic
// lvchange --available failure into the activate- or deactivate-specific
// error kind, attaching holder diagnostics on deactivation failure.
func (o *Ops) setAvailability(ctx context.Context, vg string, lvs []string, available bool) error {
	flag := "n"
	if available {
		flag = "y"
	}
	argv := []string{"lvchange", "--available", flag}
	for _, lv := range lvs {
		argv = append(argv, vg+"/"+lv)
	}
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, nil)
	for _, lv := range lvs {
		o.Engine.InvalidateLV(vg, lv)
	}
	if err == nil && rc == 0 {
		return nil
	}
	if available {
		return &lvmerr.CannotActivateLogicalVolumes{VG: vg, LVs: lvs, Err: wrapErr(err, rc, errLines)}
	}
	holders := o.holdersFor(vg, lvs)
	return &lvmerr.CannotDeactivateLogicalVolumes{VG: vg, LVs: lvs, Err: wrapErr(err, rc, errLines), Holders: holders}
}

// holdersFor builds the holders diagnostics map for a failed deactivation.
// It resolves each LV's backing device path per §6 (the dm-N symlink
// target, falling back to the dm-mapper name when the node doesn't resolve)
// and maps each path to an empty (nil) holder list: no process-listing
// collaborator (§1 lsof.proc_info) is consulted.
func (o *Ops) holdersFor(vg string, lvs []string) map[string][]string {
	holders := make(map[string][]string, len(lvs))
	for _, lv := range lvs {
		devPath := "/dev/mapper/" + procutil.DMName(vg, lv)
		if dm, err := procutil.ResolveDMDevice(vg, lv); err == nil {
			devPath = "/dev/" + dm
		}
		holders[devPath] = nil
	}
	return holders
}

// RenameLV implements renameLV(vg, old, new) (§4.8).
func (o *Ops) RenameLV(ctx context.Context, vg, oldName, newName string) error {
	rc, _, errLines, err := o.Engine.runWrite(ctx, []string{"lvrename", vg, oldName, newName}, nil)
	if err != nil || rc != 0 {
		return &lvmerr.LogicalVolumeRenameError{VG: vg, Old: oldName, New: newName, Err: wrapErr(err, rc, errLines)}
	}
	o.Engine.RemoveLV(vg, oldName)
	o.Engine.InvalidateLV(vg, newName)
	return nil
}

// RefreshLVs implements refreshLVs(vg, lvs) (§4.8).
func (o *Ops) RefreshLVs(ctx context.Context, vg string, lvs []string) error {
	return o.refresh(ctx, vg, lvs)
}

// ChangeLVsTags implements changeLVsTags(vg, lvs, add, del) (§4.8): add and
// del must be disjoint, and both sets are applied in a single lvchange
// invocation (§4.10).
func (o *Ops) ChangeLVsTags(ctx context.Context, vg string, lvs []string, add, del []string) error {
	if err := disjointTags(add, del); err != nil {
		return err
	}
	argv := []string{"lvchange"}
	for _, t := range add {
		argv = append(argv, "--addtag", t)
	}
	for _, t := range del {
		argv = append(argv, "--deltag", t)
	}
	for _, lv := range lvs {
		argv = append(argv, vg+"/"+lv)
	}
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, nil)
	for _, lv := range lvs {
		o.Engine.InvalidateLV(vg, lv)
	}
	if err != nil || rc != 0 {
		return &lvmerr.LogicalVolumeReplaceTagError{VG: vg, LV: strings.Join(lvs, ","), Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

// ChangeVGTags implements changeVGTags(vg, add, del) (§4.8).
func (o *Ops) ChangeVGTags(ctx context.Context, vg string, add, del []string) error {
	if err := disjointTags(add, del); err != nil {
		return err
	}
	argv := []string{"vgchange"}
	for _, t := range add {
		argv = append(argv, "--addtag", t)
	}
	for _, t := range del {
		argv = append(argv, "--deltag", t)
	}
	argv = append(argv, vg)
	rc, _, errLines, err := o.Engine.runWrite(ctx, argv, nil)
	o.Engine.InvalidateVG(vg)
	if err != nil || rc != 0 {
		return &lvmerr.VolumeGroupReplaceTagError{VG: vg, Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

func disjointTags(add, del []string) error {
	delSet := make(map[string]bool, len(del))
	for _, t := range del {
		delSet[t] = true
	}
	for _, t := range add {
		if delSet[t] {
			return fmt.Errorf("tag %q cannot be both added and deleted in the same call", t)
		}
	}
	return nil
}

// ResizePV implements resizePV(vg, guid) (§4.8).
func (o *Ops) ResizePV(ctx context.Context, vg, guid string) error {
	resolved := ResolvePVName(guid)
	rc, _, errLines, err := o.Engine.runWrite(ctx, []string{"pvresize", resolved}, []string{guid})
	o.Engine.InvalidatePV(resolved)
	o.Engine.InvalidateVG(vg)
	if err != nil || rc != 0 {
		return &lvmerr.CouldNotResizePhysicalVolume{GUID: guid, Err: wrapErr(err, rc, errLines)}
	}
	return nil
}

// MovePV implements movePV(vg, src, dsts) (§4.8): a no-op when the source
// PV has no allocated extents.
func (o *Ops) MovePV(ctx context.Context, vg, src string, dsts []string) error {
	resolvedSrc := ResolvePVName(src)
	pv, err := o.Engine.GetPV(ctx, resolvedSrc)
	if err != nil {
		return err
	}
	if pv.PEAllocCount == 0 {
		return nil
	}

	argv := []string{"pvmove", resolvedSrc}
	devices := []string{src}
	for _, d := range dsts {
		argv = append(argv, ResolvePVName(d))
		devices = append(devices, d)
	}

	rc, _, errLines, runErr := o.Engine.runWrite(ctx, argv, devices)
	o.Engine.InvalidatePV(resolvedSrc)
	for _, d := range dsts {
		o.Engine.InvalidatePV(ResolvePVName(d))
	}
	o.Engine.InvalidateLVsInVG(vg)
	o.Engine.InvalidateVG(vg)
	if runErr != nil || rc != 0 {
		return &lvmerr.CouldNotMovePVData{Src: src, Dsts: dsts, Err: wrapErr(runErr, rc, errLines)}
	}
	return nil
}

// Bootstrap implements bootstrap() (§4.8 last row): bulk-reload every PV,
// VG and LV, then for each VG deactivate LVs that are active, not opened,
// not named in skiplvs, and not matched by the prepared-images glob.
func (o *Ops) Bootstrap(ctx context.Context, skiplvs map[string][]string) error {
	if err := o.Engine.reloadPVs(ctx, nil); err != nil {
		return err
	}
	if err := o.Engine.reloadVGs(ctx, nil); err != nil {
		return err
	}

	for _, vg := range o.Engine.store.allFreshVGs() {
		if err := o.Engine.reloadLVs(ctx, vg.Name, nil); err != nil {
			lvmlog.FromContext(ctx).Info("bootstrap lv reload failed", "vg", vg.Name, "error", err)
			continue
		}

		prepared, err := o.preparedImageNames(vg.Name)
		if err != nil {
			lvmlog.FromContext(ctx).Info("bootstrap glob failed", "vg", vg.Name, "error", err)
		}
		skip := make(map[string]bool, len(skiplvs[vg.Name]))
		for _, n := range skiplvs[vg.Name] {
			skip[n] = true
		}

		var deactivate []string
		for _, lv := range o.Engine.store.allFreshLVsInVG(vg.Name) {
			if !lv.Active() || lv.Opened() || skip[lv.Name] || prepared[lv.Name] {
				continue
			}
			deactivate = append(deactivate, lv.Name)
		}
		sort.Strings(deactivate)
		if len(deactivate) == 0 {
			continue
		}
		if err := o.DeactivateLVs(ctx, vg.Name, deactivate); err != nil {
			lvmlog.FromContext(ctx).Info("bootstrap deactivation failed", "vg", vg.Name, "lvs", deactivate, "error", err)
			for _, lv := range deactivate {
				o.Engine.InvalidateLV(vg.Name, lv)
			}
		}
	}
	return nil
}

// preparedImageNames globs StorageRoot/<vg>/*/* and returns the set of
// basenames found (§4.8, §6).
func (o *Ops) preparedImageNames(vg string) (map[string]bool, error) {
	out := make(map[string]bool)
	if o.StorageRoot == "" {
		return out, nil
	}
	matches, err := filepath.Glob(filepath.Join(o.StorageRoot, vg, "*", "*"))
	if err != nil {
		return out, err
	}
	for _, m := range matches {
		out[filepath.Base(m)] = true
	}
	return out, nil
}

func wrapErr(err error, rc int, errLines []string) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("exit code %d: %s", rc, strings.Join(errLines, "; "))
}
