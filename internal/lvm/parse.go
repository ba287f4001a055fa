// Package lvm implements the LVM cache and command engine: filter
// construction, --config rendering, privileged command execution, the
// PV/VG/LV cache, and the public operations built on top of it.
package lvm

import (
	"strconv"
	"strings"

	"github.com/invatu/lvmengine/internal/lvmerr"
)

// Field counts per §4.9.
const (
	PVFieldsLen = 11
	VGFieldsLen = 14
	LVFieldsLen = 8
)

// UnknownSentinel is the placeholder lvm emits for a row it cannot resolve
// a device for (e.g. a disconnected LUN).
const UnknownSentinel = "[unknown]"

const separator = "|"

func splitFields(line string) []string {
	raw := strings.Split(line, separator)
	fields := make([]string, len(raw))
	for i, f := range raw {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// splitTags comma-splits a tag field; an empty string yields an empty (not
// nil-with-one-empty-element) slice.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

func parseUint(command, line, field string) (uint64, error) {
	v, err := strconv.ParseUint(field, 10, 64)
	if err != nil {
		return 0, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}
	return v, nil
}

func parseInt(command, line, field string) (int, error) {
	v, err := strconv.Atoi(field)
	if err != nil {
		return 0, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}
	return v, nil
}

// ParsePVLine parses one row of pvs output in the field order
// uuid,name,size,vg_name,vg_uuid,pe_start,pe_count,pe_alloc_count,
// mda_count,dev_size,mda_used_count.
func ParsePVLine(line string) (PV, error) {
	const command = "pvs"
	f := splitFields(line)
	if len(f) != PVFieldsLen {
		return PV{}, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}

	size, err := parseUint(command, line, f[2])
	if err != nil {
		return PV{}, err
	}
	peStart, err := parseUint(command, line, f[5])
	if err != nil {
		return PV{}, err
	}
	peCount, err := parseInt(command, line, f[6])
	if err != nil {
		return PV{}, err
	}
	peAlloc, err := parseInt(command, line, f[7])
	if err != nil {
		return PV{}, err
	}
	mdaCount, err := parseInt(command, line, f[8])
	if err != nil {
		return PV{}, err
	}
	devSize, err := parseUint(command, line, f[9])
	if err != nil {
		return PV{}, err
	}
	mdaUsed, err := parseInt(command, line, f[10])
	if err != nil {
		return PV{}, err
	}

	return PV{
		UUID:         f[0],
		Name:         f[1],
		Size:         size,
		VGName:       f[3],
		VGUUID:       f[4],
		PEStart:      peStart,
		PECount:      peCount,
		PEAllocCount: peAlloc,
		MDACount:     mdaCount,
		DevSize:      devSize,
		MDAUsedCount: mdaUsed,
	}, nil
}

// vgRow is a single unaggregated row of vgs output: one VG, one PV name.
// _reloadvgs groups rows sharing a uuid into a single VG with PVNames
// collapsed into a list (§4.5).
type vgRow struct {
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
	PVName      string
}

// parseVGRow parses one row of vgs output in the field order
// uuid,name,attr,size,free,extent_size,extent_count,free_count,tags,
// vg_mda_size,vg_mda_free,lv_count,pv_count,pv_name.
func parseVGRow(line string) (vgRow, error) {
	const command = "vgs"
	f := splitFields(line)
	if len(f) != VGFieldsLen {
		return vgRow{}, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}

	attr, aerr := ParseVGAttr(f[2])
	if aerr != nil {
		return vgRow{}, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}
	size, err := parseUint(command, line, f[3])
	if err != nil {
		return vgRow{}, err
	}
	free, err := parseUint(command, line, f[4])
	if err != nil {
		return vgRow{}, err
	}
	extentSize, err := parseUint(command, line, f[5])
	if err != nil {
		return vgRow{}, err
	}
	extentCount, err := parseInt(command, line, f[6])
	if err != nil {
		return vgRow{}, err
	}
	freeCount, err := parseInt(command, line, f[7])
	if err != nil {
		return vgRow{}, err
	}
	mdaSize, err := parseUint(command, line, f[9])
	if err != nil {
		return vgRow{}, err
	}
	mdaFree, err := parseUint(command, line, f[10])
	if err != nil {
		return vgRow{}, err
	}
	lvCount, err := parseInt(command, line, f[11])
	if err != nil {
		return vgRow{}, err
	}
	pvCount, err := parseInt(command, line, f[12])
	if err != nil {
		return vgRow{}, err
	}

	return vgRow{
		UUID:        f[0],
		Name:        f[1],
		Attr:        attr,
		Size:        size,
		Free:        free,
		ExtentSize:  extentSize,
		ExtentCount: extentCount,
		FreeCount:   freeCount,
		Tags:        splitTags(f[8]),
		MDASize:     mdaSize,
		MDAFree:     mdaFree,
		LVCount:     lvCount,
		PVCount:     pvCount,
		PVName:      f[13],
	}, nil
}

// groupVGRows collapses rows sharing a uuid into VG records, skipping
// "[unknown]" pv_name entries and logging (via the returned warnings slice)
// any pv_count/len(pv_name) mismatch without failing the reload (§4.5).
func groupVGRows(rows []vgRow) ([]VG, []string) {
	order := make([]string, 0, len(rows))
	byUUID := make(map[string]*VG, len(rows))
	var warnings []string

	for _, r := range rows {
		vg, ok := byUUID[r.UUID]
		if !ok {
			order = append(order, r.UUID)
			vg = &VG{
				UUID:        r.UUID,
				Name:        r.Name,
				Attr:        r.Attr,
				Size:        r.Size,
				Free:        r.Free,
				ExtentSize:  r.ExtentSize,
				ExtentCount: r.ExtentCount,
				FreeCount:   r.FreeCount,
				Tags:        r.Tags,
				MDASize:     r.MDASize,
				MDAFree:     r.MDAFree,
				LVCount:     r.LVCount,
				PVCount:     r.PVCount,
			}
			byUUID[r.UUID] = vg
		}
		if r.PVName != "" && r.PVName != UnknownSentinel {
			vg.PVNames = append(vg.PVNames, r.PVName)
		}
	}

	out := make([]VG, 0, len(order))
	for _, uuid := range order {
		vg := byUUID[uuid]
		if vg.PVCount != len(vg.PVNames) {
			warnings = append(warnings, "vg "+vg.Name+": pv_count="+strconv.Itoa(vg.PVCount)+" disagrees with len(pv_name)="+strconv.Itoa(len(vg.PVNames)))
		}
		out = append(out, *vg)
	}
	return out, warnings
}

// ParseLVLine parses one row of lvs output in the field order
// uuid,name,vg_name,attr,size,seg_start_pe,devices,tags.
func ParseLVLine(line string) (LV, error) {
	const command = "lvs"
	f := splitFields(line)
	if len(f) != LVFieldsLen {
		return LV{}, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}

	attr, aerr := ParseLVAttr(f[3])
	if aerr != nil {
		return LV{}, &lvmerr.InvalidOutputLine{Command: command, Line: line}
	}
	size, err := parseUint(command, line, f[4])
	if err != nil {
		return LV{}, err
	}

	return LV{
		UUID:       f[0],
		Name:       f[1],
		VGName:     f[2],
		Attr:       attr,
		Size:       size,
		SegStartPE: f[5],
		Devices:    f[6],
		Tags:       splitTags(f[7]),
	}, nil
}

// firstExtentOnly filters lv rows to the first segment of each (vg,name)
// pair, discarding later multi-segment rows (§3, §4.5).
func firstExtentOnly(lvs []LV) []LV {
	seen := make(map[LVKey]bool, len(lvs))
	out := make([]LV, 0, len(lvs))
	for _, lv := range lvs {
		if lv.SegStartPE != "0" {
			continue
		}
		key := LVKey{VG: lv.VGName, LV: lv.Name}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, lv)
	}
	return out
}
