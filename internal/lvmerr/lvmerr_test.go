package lvmerr

import (
	"errors"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"InvalidOutputLine", &InvalidOutputLine{Command: "pvs", Line: "a|b"}, `invalid output line for "pvs": "a|b"`},
		{"VolumeGroupDoesNotExist", &VolumeGroupDoesNotExist{VG: "vg0"}, `volume group "vg0" does not exist`},
		{"LogicalVolumeDoesNotExistError", &LogicalVolumeDoesNotExistError{VG: "vg0", LV: "lv0"}, `logical volume vg0/lv0 does not exist`},
		{"UnreadableEntry", &UnreadableEntry{Name: "pv0"}, `failed reload: "pv0" is unreadable`},
		{"LogicalVolumeExtendError", &LogicalVolumeExtendError{VG: "vg0", LV: "lv0", RequiredExtra: 3, FreeExtents: 1}, "cannot extend vg0/lv0: needs 3 more extents, only 1 free"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnwrapChains(t *testing.T) {
	inner := errors.New("exit status 5")

	wrapped := &CannotCreateLogicalVolume{VG: "vg0", LV: "lv0", Err: inner}
	if !errors.Is(wrapped, inner) {
		t.Errorf("expected errors.Is to see through CannotCreateLogicalVolume to inner")
	}

	var target *CannotCreateLogicalVolume
	if !errors.As(wrapped, &target) {
		t.Fatalf("expected errors.As to discriminate CannotCreateLogicalVolume")
	}
	if target.VG != "vg0" || target.LV != "lv0" {
		t.Errorf("unexpected fields on unwrapped target: %+v", target)
	}
}

func TestDiscriminatesBetweenKinds(t *testing.T) {
	var vgErr error = &VolumeGroupExtendError{VG: "vg0", Err: errors.New("boom")}

	var lvErr *LogicalVolumeRenameError
	if errors.As(vgErr, &lvErr) {
		t.Errorf("VolumeGroupExtendError must not satisfy errors.As for LogicalVolumeRenameError")
	}

	var target *VolumeGroupExtendError
	if !errors.As(vgErr, &target) {
		t.Errorf("expected errors.As to match VolumeGroupExtendError")
	}
}

func TestErrNotFoundIsASentinel(t *testing.T) {
	if !errors.Is(ErrNotFound, ErrNotFound) {
		t.Errorf("ErrNotFound must be comparable to itself via errors.Is")
	}
}
