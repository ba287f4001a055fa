package lvm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invatu/lvmengine/internal/lvmerr"
)

func newTestOps(t *testing.T, runner Runner, storageRoot string) *Ops {
	t.Helper()
	e := NewEngine(runner, noMultipath, noAllowlist)
	return NewOps(e, storageRoot)
}

// S5. extend_lv is idempotent: VG extent_size=128MiB, LV size=512MiB,
// requesting 400MiB must not spawn lvextend at all.
func TestExtendLVIdempotent(t *testing.T) {
	runner := &fakeRunner{}
	ops := newTestOps(t, runner, "")

	ops.Engine.store.upsertVG(VG{Name: "vg0", ExtentSize: 128 * 1024 * 1024, FreeCount: 100})
	ops.Engine.store.upsertLV(LV{UUID: "u", Name: "lv0", VGName: "vg0", Size: 512 * 1024 * 1024, Attr: LVAttr{State: LVStateActive}})

	if err := ops.ExtendLV(context.Background(), "vg0", "lv0", 400); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected no commands spawned for an already-satisfied extend, got %d: %v", runner.callCount(), runner.calls)
	}
}

func TestExtendLVFailureReportsFreeExtents(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{rc: 5, errLine: []string{"insufficient free extents"}}, // lvextend
		{rc: 0, out: []string{"uuid-lv0|lv0|vg0|-wi-ao---|134217728|0|/dev/mapper/pv0(0)|"}}, // post-failure lvs reload: still 128MiB
		{rc: 0, out: []string{"uuid-vg0|vg0|wz--n-|1073741824|268435456|134217728|8|2||0|0|1|1|/dev/mapper/pv0"}}, // vgs reload
	}}
	ops := newTestOps(t, runner, "")

	ops.Engine.store.upsertVG(VG{Name: "vg0", ExtentSize: 128 * 1024 * 1024, FreeCount: 2})
	ops.Engine.store.upsertLV(LV{UUID: "u", Name: "lv0", VGName: "vg0", Size: 128 * 1024 * 1024})

	err := ops.ExtendLV(context.Background(), "vg0", "lv0", 512)
	if err == nil {
		t.Fatalf("expected an error")
	}
	var target *lvmerr.LogicalVolumeExtendError
	if !errors.As(err, &target) {
		t.Fatalf("expected *lvmerr.LogicalVolumeExtendError, got %T: %v", err, err)
	}
	if target.RequiredExtra != 3 {
		t.Errorf("RequiredExtra = %d, want 3", target.RequiredExtra)
	}
	if target.FreeExtents != 2 {
		t.Errorf("FreeExtents = %d, want 2", target.FreeExtents)
	}
}

// S6. bootstrap() deactivates only LVs that are active, not opened, not in
// skiplvs, and not matched by the prepared-images glob.
func TestBootstrapDeactivatesOnlyEligibleLVs(t *testing.T) {
	storageRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(storageRoot, "vg0", "img1"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(storageRoot, "vg0", "img1", "d"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	runner := &fakeRunner{results: []fakeResult{
		{rc: 0, out: nil},                         // pvs
		{rc: 0, out: []string{
			"uuid-vg0|vg0|wz--n-|1073741824|536870912|134217728|8|4||0|0|4|1|/dev/mapper/pv0",
		}}, // vgs
		{rc: 0, out: []string{
			"uuid-a|a|vg0|-wi-a---|104857600|0|/dev/mapper/pv0(0)|",
			"uuid-b|b|vg0|-wi-ao--|104857600|0|/dev/mapper/pv0(100)|",
			"uuid-c|c|vg0|-wi-a---|104857600|0|/dev/mapper/pv0(200)|",
			"uuid-d|d|vg0|-wi-a---|104857600|0|/dev/mapper/pv0(300)|",
		}}, // lvs
		{rc: 0}, // lvchange --available n
	}}
	ops := newTestOps(t, runner, storageRoot)

	err := ops.Bootstrap(context.Background(), map[string][]string{"vg0": {"c"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if runner.callCount() != 4 {
		t.Fatalf("expected 4 commands, got %d: %v", runner.callCount(), runner.calls)
	}
	deactivateArgs := runner.calls[3]
	joined := strings.Join(deactivateArgs, " ")
	if !strings.Contains(joined, "vg0/a") {
		t.Errorf("expected vg0/a to be deactivated, args = %v", deactivateArgs)
	}
	for _, name := range []string{"vg0/b", "vg0/c", "vg0/d"} {
		if strings.Contains(joined, name) {
			t.Errorf("did not expect %s to be deactivated, args = %v", name, deactivateArgs)
		}
	}
}

// On a failed bootstrap deactivation, affected LV cache entries must be
// re-marked stale rather than left Fresh.
func TestBootstrapDeactivationFailureInvalidatesCache(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{rc: 0, out: nil},
		{rc: 0, out: []string{
			"uuid-vg0|vg0|wz--n-|1073741824|536870912|134217728|8|4||0|0|4|1|/dev/mapper/pv0",
		}},
		{rc: 0, out: []string{
			"uuid-a|a|vg0|-wi-a---|104857600|0|/dev/mapper/pv0(0)|",
		}},
		{rc: 5, errLine: []string{"device busy"}},
	}}
	ops := newTestOps(t, runner, "")

	if err := ops.Bootstrap(context.Background(), nil); err != nil {
		t.Fatalf("Bootstrap itself must not fail on a deactivation error: %v", err)
	}

	entry, ok := ops.Engine.store.lvEntry(LVKey{VG: "vg0", LV: "a"})
	if !ok {
		t.Fatalf("expected lv a to still have a cache entry")
	}
	if !entry.isStale() {
		t.Errorf("expected lv a to be marked stale after a failed deactivation")
	}
}

func TestMovePVNoopWhenNoAllocatedExtents(t *testing.T) {
	runner := &fakeRunner{}
	ops := newTestOps(t, runner, "")
	ops.Engine.store.upsertPV(PV{Name: "/dev/mapper/src", PEAllocCount: 0})

	if err := ops.MovePV(context.Background(), "vg0", "src", []string{"dst"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected pvmove to be skipped for a PV with no allocated extents, got %d calls", runner.callCount())
	}
}

func TestDisjointTagsRejectsOverlap(t *testing.T) {
	if err := disjointTags([]string{"a", "b"}, []string{"b"}); err == nil {
		t.Errorf("expected an error when a tag appears in both add and del")
	}
	if err := disjointTags([]string{"a"}, []string{"b"}); err != nil {
		t.Errorf("unexpected error for disjoint sets: %v", err)
	}
}

func TestCreateVGWiresMetadataSizeTagAndFilter(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{
		{rc: 0}, // pvcreate
		{rc: 0}, // pvchange --metadataignore n
		{rc: 0}, // vgcreate
	}}
	ops := newTestOps(t, runner, "")

	err := ops.CreateVG(context.Background(), "vg0", []string{"/dev/mapper/pv0"}, "tag1", 1048576, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.callCount() != 3 {
		t.Fatalf("expected 3 commands, got %d: %v", runner.callCount(), runner.calls)
	}

	pvcreateArgs := strings.Join(runner.calls[0], " ")
	if !strings.Contains(pvcreateArgs, "--metadatasize 1048576b") {
		t.Errorf("expected --metadatasize wired from mdSizeBytes, args = %v", runner.calls[0])
	}
	vgcreateArgs := strings.Join(runner.calls[2], " ")
	if !strings.Contains(vgcreateArgs, "--addtag tag1") {
		t.Errorf("expected --addtag tag1 in vgcreate, args = %v", runner.calls[2])
	}
	if !strings.Contains(vgcreateArgs, "-s 134217728b") {
		t.Errorf("expected vgcreate -s to carry a byte-unit suffix matching VGExtentSize, args = %v", runner.calls[2])
	}
	if !strings.Contains(vgcreateArgs, `filter=["a|^/dev/mapper/pv0$|", "r|.*|"]`) {
		t.Errorf("expected vgcreate --config to carry a filter scoped to the new device, args = %v", runner.calls[2])
	}
	if strings.Count(vgcreateArgs, "--autobackup") != 1 {
		t.Errorf("expected exactly one --autobackup flag (from runWrite's writeSuffix), args = %v", runner.calls[2])
	}
}

func TestCreateVGRejectsNonUniformBlockSizes(t *testing.T) {
	runner := &fakeRunner{}
	ops := newTestOps(t, runner, "")
	ops.WithBlockSizeSource(func(devs []string) (map[string]uint64, error) {
		return map[string]uint64{"/dev/mapper/pv0": 512, "/dev/mapper/pv1": 4096}, nil
	})

	err := ops.CreateVG(context.Background(), "vg0", []string{"/dev/mapper/pv0", "/dev/mapper/pv1"}, "", 0, false)
	var target *lvmerr.DeviceBlockSizeError
	if !errors.As(err, &target) {
		t.Fatalf("expected *lvmerr.DeviceBlockSizeError, got %T: %v", err, err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected no commands spawned when block sizes are non-uniform, got %d", runner.callCount())
	}
}

func TestExtendVGRejectsMismatchedBlockSize(t *testing.T) {
	runner := &fakeRunner{}
	ops := newTestOps(t, runner, "")
	ops.WithBlockSizeSource(func(devs []string) (map[string]uint64, error) {
		sizes := map[string]uint64{"/dev/mapper/pv1": 4096, "/dev/mapper/pv0": 512}
		out := make(map[string]uint64, len(devs))
		for _, d := range devs {
			out[d] = sizes[d]
		}
		return out, nil
	})
	ops.Engine.store.upsertVG(VG{Name: "vg0", PVNames: []string{"/dev/mapper/pv0"}})

	err := ops.ExtendVG(context.Background(), "vg0", []string{"/dev/mapper/pv1"}, false)
	var target *lvmerr.VolumeGroupBlockSizeError
	if !errors.As(err, &target) {
		t.Fatalf("expected *lvmerr.VolumeGroupBlockSizeError, got %T: %v", err, err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected no commands spawned when the new device's block size mismatches the VG, got %d", runner.callCount())
	}
}

func TestCreateLVRejectsInsufficientFreeExtents(t *testing.T) {
	runner := &fakeRunner{}
	ops := newTestOps(t, runner, "")
	ops.Engine.store.upsertVG(VG{Name: "vg0", ExtentSize: 128 * 1024 * 1024, FreeCount: 1})

	err := ops.CreateLV(context.Background(), "vg0", "lv0", 512, CreateLVOptions{})
	var target *lvmerr.VolumeGroupSizeError
	if !errors.As(err, &target) {
		t.Fatalf("expected *lvmerr.VolumeGroupSizeError, got %T: %v", err, err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected lvcreate to be skipped when the VG lacks free extents, got %d calls", runner.callCount())
	}
}

func TestDeviceActiveSourceOverridesCachedAttr(t *testing.T) {
	runner := &fakeRunner{results: []fakeResult{{rc: 0}}}
	ops := newTestOps(t, runner, "")
	ops.WithDeviceActiveSource(func(vg, lv string) (bool, error) { return false, nil })
	ops.Engine.store.upsertLV(LV{UUID: "u", Name: "lv0", VGName: "vg0", Attr: LVAttr{State: LVStateActive}})

	if err := ops.DeactivateLVs(context.Background(), "vg0", []string{"lv0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.callCount() != 0 {
		t.Errorf("expected the device-active source (reporting inactive) to override the cached active attr, got %d calls", runner.callCount())
	}
}
