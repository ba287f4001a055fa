package lvm

// PV is a physical volume record as parsed from pvs output. See §3.
type PV struct {
	UUID         string
	Name         string
	Size         uint64
	VGName       string
	VGUUID       string
	PEStart      uint64
	PECount      int
	PEAllocCount int
	MDACount     int
	DevSize      uint64
	MDAUsedCount int
}

// GUID returns the basename of Name, the invariant guid=basename(name).
func (p PV) GUID() string { return GUID(p.Name) }

// IsMetadataPV reports whether this PV holds the VG's one enabled MDA.
func (p PV) IsMetadataPV() bool { return p.MDAUsedCount == 2 }

// VG is a volume group record as parsed (and grouped) from vgs output.
type VG struct {
	UUID        string
	Name        string
	Attr        VGAttr
	Size        uint64
	Free        uint64
	ExtentSize  uint64
	ExtentCount int
	FreeCount   int
	Tags        []string
	MDASize     uint64
	MDAFree     uint64
	LVCount     int
	PVCount     int
	PVNames     []string
}

// Writeable reports Attr.Permission=='w'.
func (v VG) Writeable() bool { return v.Attr.Writeable() }

// Partial renders "OK" or "PARTIAL" per Attr.Partial.
func (v VG) Partial() string { return v.Attr.PartialState() }

// LV is a logical volume record as parsed from lvs output, restricted to
// the first-extent (seg_start_pe=="0") row of multi-segment volumes.
type LV struct {
	UUID       string
	Name       string
	VGName     string
	Attr       LVAttr
	Size       uint64
	SegStartPE string
	Devices    string
	Tags       []string
}

// Writeable reports Attr.Permission=='w'.
func (l LV) Writeable() bool { return l.Attr.Writeable() }

// Opened reports Attr.DevOpen=='o'.
func (l LV) Opened() bool { return l.Attr.Opened() }

// Active reports Attr.State=='a'.
func (l LV) Active() bool { return l.Attr.Active() }

// LVKey identifies an LV cache slot by (vg, name).
type LVKey struct {
	VG string
	LV string
}
