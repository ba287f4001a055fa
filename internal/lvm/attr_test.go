package lvm

import "testing"

func TestParseVGAttr(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    VGAttr
		wantErr bool
	}{
		{
			"writeable resizeable",
			"wz--n-",
			VGAttr{
				Permission: VGPermissionWriteable,
				Resizeable: VGResizeableTrue,
				Exported:   VGExportedFalse,
				Partial:    VGPartialOK,
				Allocation: VGAllocationNormal,
				Clustered:  VGClusteredFalse,
			},
			false,
		},
		{
			"too short",
			"wz--n",
			VGAttr{},
			true,
		},
		{
			"too long",
			"wz--n--",
			VGAttr{},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVGAttr(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVGAttr(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseVGAttr(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestVGAttrWriteableAndPartial(t *testing.T) {
	a, err := ParseVGAttr("wz--n-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Writeable() {
		t.Errorf("expected writeable")
	}
	if a.PartialState() != "OK" {
		t.Errorf("expected OK, got %q", a.PartialState())
	}

	a.Partial = VGPartialPartial
	if a.PartialState() != "PARTIAL" {
		t.Errorf("expected PARTIAL, got %q", a.PartialState())
	}
}

func TestParseLVAttr(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    LVAttr
		wantErr bool
	}{
		{
			"active writeable open",
			"-wi-ao---",
			LVAttr{
				VolumeType:  LVVolumeTypeNone,
				Permission:  LVPermissionWriteable,
				Allocations: LVAllocationsInherited,
				FixedMinor:  LVFixedMinorFalse,
				State:       LVStateActive,
				DevOpen:     LVDevOpenTrue,
				Target:      LVTarget('-'),
				Zero:        LVZero('-'),
			},
			false,
		},
		{
			"too short",
			"-wi-ao",
			LVAttr{},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLVAttr(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLVAttr(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("ParseLVAttr(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
			if got.Writeable() != (got.Permission == LVPermissionWriteable) {
				t.Errorf("Writeable() inconsistent with Permission field")
			}
			if got.Opened() != (got.DevOpen == LVDevOpenTrue) {
				t.Errorf("Opened() inconsistent with DevOpen field")
			}
			if got.Active() != (got.State == LVStateActive) {
				t.Errorf("Active() inconsistent with State field")
			}
		})
	}
}
