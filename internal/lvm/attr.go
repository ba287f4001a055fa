package lvm

import "fmt"

// The attribute types below follow the rune-enum decomposition style of the
// teacher's internal/lvmd/command/lvm_lv_attr.go (one named rune type per
// character position, with an "undefined"/'-' zero value) but are reshaped
// to the six-character vg_attr and eight-character lv_attr strings this
// engine parses; the teacher's ninth/tenth lv_attr health-indicator
// characters are not modeled, since no §3 field names them.

// VGPermission is the first character of vg_attr.
type VGPermission rune

const (
	VGPermissionWriteable VGPermission = 'w'
	VGPermissionReadOnly  VGPermission = 'r'
)

// VGResizeable is the second character of vg_attr.
type VGResizeable rune

const (
	VGResizeableTrue  VGResizeable = 'z'
	VGResizeableFalse VGResizeable = '-'
)

// VGExported is the third character of vg_attr.
type VGExported rune

const (
	VGExportedTrue  VGExported = 'x'
	VGExportedFalse VGExported = '-'
)

// VGPartial is the fourth character of vg_attr.
type VGPartial rune

const (
	VGPartialOK      VGPartial = '-'
	VGPartialPartial VGPartial = 'p'
)

// VGAllocation is the fifth character of vg_attr.
type VGAllocation rune

const (
	VGAllocationNormal     VGAllocation = 'n'
	VGAllocationContiguous VGAllocation = 'c'
	VGAllocationCling      VGAllocation = 'l'
	VGAllocationAnywhere   VGAllocation = 'a'
)

// VGClustered is the sixth character of vg_attr.
type VGClustered rune

const (
	VGClusteredTrue  VGClustered = 'c'
	VGClusteredFalse VGClustered = '-'
)

// VGAttr is the fully decoded six-character vg_attr bitstring.
type VGAttr struct {
	Permission VGPermission
	Resizeable VGResizeable
	Exported   VGExported
	Partial    VGPartial
	Allocation VGAllocation
	Clustered  VGClustered
}

// ParseVGAttr decodes a raw vg_attr string, e.g. "wz--n-".
func ParseVGAttr(raw string) (VGAttr, error) {
	if len(raw) != 6 {
		return VGAttr{}, fmt.Errorf("%q is an invalid length vg_attr", raw)
	}
	return VGAttr{
		Permission: VGPermission(raw[0]),
		Resizeable: VGResizeable(raw[1]),
		Exported:   VGExported(raw[2]),
		Partial:    VGPartial(raw[3]),
		Allocation: VGAllocation(raw[4]),
		Clustered:  VGClustered(raw[5]),
	}, nil
}

func (a VGAttr) String() string {
	return fmt.Sprintf("%c%c%c%c%c%c", a.Permission, a.Resizeable, a.Exported, a.Partial, a.Allocation, a.Clustered)
}

// Writeable reports permission=='w'.
func (a VGAttr) Writeable() bool { return a.Permission == VGPermissionWriteable }

// PartialState renders the VG's partial status as the two-valued string the
// specification requires: "OK" or "PARTIAL".
func (a VGAttr) PartialState() string {
	if a.Partial == VGPartialOK {
		return "OK"
	}
	return "PARTIAL"
}

// LVVolumeType is the first character of lv_attr.
type LVVolumeType rune

const (
	LVVolumeTypeMirrored  LVVolumeType = 'm'
	LVVolumeTypeOrigin    LVVolumeType = 'o'
	LVVolumeTypeRAID      LVVolumeType = 'r'
	LVVolumeTypeSnapshot  LVVolumeType = 's'
	LVVolumeTypeVirtual   LVVolumeType = 'v'
	LVVolumeTypeThin      LVVolumeType = 'V'
	LVVolumeTypeThinPool  LVVolumeType = 't'
	LVVolumeTypeNone      LVVolumeType = '-'
)

// LVPermission is the second character of lv_attr.
type LVPermission rune

const (
	LVPermissionWriteable LVPermission = 'w'
	LVPermissionReadOnly  LVPermission = 'r'
	LVPermissionNone      LVPermission = '-'
)

// LVAllocations is the third character of lv_attr.
type LVAllocations rune

const (
	LVAllocationsAnywhere   LVAllocations = 'a'
	LVAllocationsContiguous LVAllocations = 'c'
	LVAllocationsInherited  LVAllocations = 'i'
	LVAllocationsCling      LVAllocations = 'l'
	LVAllocationsNormal     LVAllocations = 'n'
	LVAllocationsNone       LVAllocations = '-'
)

// LVFixedMinor is the fourth character of lv_attr.
type LVFixedMinor rune

const (
	LVFixedMinorTrue  LVFixedMinor = 'm'
	LVFixedMinorFalse LVFixedMinor = '-'
)

// LVState is the fifth character of lv_attr.
type LVState rune

const (
	LVStateActive    LVState = 'a'
	LVStateSuspended LVState = 's'
	LVStateInvalid   LVState = 'I'
	LVStateNone      LVState = '-'
)

// LVDevOpen is the sixth character of lv_attr.
type LVDevOpen rune

const (
	LVDevOpenTrue    LVDevOpen = 'o'
	LVDevOpenFalse   LVDevOpen = '-'
	LVDevOpenUnknown LVDevOpen = 'X'
)

// LVTarget is the seventh character of lv_attr.
type LVTarget rune

const (
	LVTargetMirror   LVTarget = 'm'
	LVTargetRaid     LVTarget = 'r'
	LVTargetSnapshot LVTarget = 's'
	LVTargetThin     LVTarget = 't'
	LVTargetVirtual  LVTarget = 'v'
	LVTargetUnknown  LVTarget = 'u'
)

// LVZero is the eighth character of lv_attr.
type LVZero rune

const (
	LVZeroTrue  LVZero = 'z'
	LVZeroFalse LVZero = '-'
)

// LVAttr is the fully decoded eight-character lv_attr bitstring.
type LVAttr struct {
	VolumeType  LVVolumeType
	Permission  LVPermission
	Allocations LVAllocations
	FixedMinor  LVFixedMinor
	State       LVState
	DevOpen     LVDevOpen
	Target      LVTarget
	Zero        LVZero
}

// ParseLVAttr decodes a raw lv_attr string, e.g. "-wi-ao----" truncated to
// this spec's eight tracked characters.
func ParseLVAttr(raw string) (LVAttr, error) {
	if len(raw) < 8 {
		return LVAttr{}, fmt.Errorf("%q is an invalid length lv_attr", raw)
	}
	return LVAttr{
		VolumeType:  LVVolumeType(raw[0]),
		Permission:  LVPermission(raw[1]),
		Allocations: LVAllocations(raw[2]),
		FixedMinor:  LVFixedMinor(raw[3]),
		State:       LVState(raw[4]),
		DevOpen:     LVDevOpen(raw[5]),
		Target:      LVTarget(raw[6]),
		Zero:        LVZero(raw[7]),
	}, nil
}

func (a LVAttr) String() string {
	return fmt.Sprintf("%c%c%c%c%c%c%c%c",
		a.VolumeType, a.Permission, a.Allocations, a.FixedMinor, a.State, a.DevOpen, a.Target, a.Zero)
}

// Writeable reports permission=='w'.
func (a LVAttr) Writeable() bool { return a.Permission == LVPermissionWriteable }

// Opened reports devopen=='o'.
func (a LVAttr) Opened() bool { return a.DevOpen == LVDevOpenTrue }

// Active reports state=='a'.
func (a LVAttr) Active() bool { return a.State == LVStateActive }
