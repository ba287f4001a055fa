package lvm

import (
	"context"
	"fmt"

	"github.com/invatu/lvmengine/internal/lvmerr"
	"github.com/invatu/lvmengine/internal/lvmlog"
)

// reloadPVs implements _reloadpvs (§4.5): run pvs (optionally scoped to
// names), upsert every parsed row, delete stale rows that vanished from the
// output, and on failure mark previously-stale scoped entries Unreadable.
func (e *Engine) reloadPVs(ctx context.Context, names []string) error {
	argv := []string{"pvs", "-o", pvReportFields}
	argv = append(argv, names...)

	rc, out, _, err := e.runRead(ctx, argv, nil)
	if err != nil {
		return err
	}
	if rc != 0 {
		e.markFailedReloadUnreadable(ctx, "pvs", names, e.store.stalePVNames, e.store.markPVUnreadable)
		return fmt.Errorf("pvs failed with exit code %d", rc)
	}

	seen := make(map[string]bool, len(out))
	for _, line := range out {
		pv, perr := ParsePVLine(line)
		if perr != nil {
			return perr
		}
		if pv.Name == UnknownSentinel {
			continue
		}
		seen[pv.Name] = true
		e.store.upsertPV(pv)
	}

	e.dropMissing(ctx, names, seen, e.store.pvNames, func(n string) { e.store.deletePV(n) })

	if len(names) == 0 {
		e.store.setStalePV(false)
	}
	return nil
}

// reloadVGs implements _reloadvgs (§4.5): run vgs, group rows by uuid,
// upsert, and reconcile missing names. vgs may emit partial data on
// failure, so the partial parse still runs even when rc!=0.
func (e *Engine) reloadVGs(ctx context.Context, names []string) error {
	argv := []string{"vgs", "-o", vgReportFields}
	argv = append(argv, names...)

	rc, out, _, err := e.runRead(ctx, argv, nil)
	if err != nil {
		return err
	}

	logger := lvmlog.FromContext(ctx)

	var rows []vgRow
	for _, line := range out {
		row, perr := parseVGRow(line)
		if perr != nil {
			if rc == 0 {
				return perr
			}
			// vgs may emit partial/garbled data on failure; skip lines
			// that don't parse instead of failing the whole reload.
			continue
		}
		rows = append(rows, row)
	}
	vgs, warnings := groupVGRows(rows)
	for _, w := range warnings {
		logger.Info("vg reload inconsistency", "detail", w)
	}

	seen := make(map[string]bool, len(vgs))
	for _, vg := range vgs {
		seen[vg.Name] = true
		e.store.upsertVG(vg)
	}

	if rc != 0 {
		e.markFailedReloadUnreadable(ctx, "vgs", names, e.store.staleVGNames, e.store.markVGUnreadable)
		return fmt.Errorf("vgs failed with exit code %d", rc)
	}

	e.dropMissing(ctx, names, seen, e.store.vgNames, func(n string) { e.store.deleteVG(n) })

	if len(names) == 0 {
		e.store.setStaleVG(false)
	}
	return nil
}

// reloadLVs implements _reloadlvs (§4.5): run lvs scoped to a VG and
// optional LV names, keep only first-extent rows, and record
// "fresh-lvs-known-for-vg" when the reload was VG-scoped.
func (e *Engine) reloadLVs(ctx context.Context, vg string, lvNames []string) error {
	target := vg
	if len(lvNames) == 1 {
		target = vg + "/" + lvNames[0]
	}
	argv := []string{"lvs", "-o", lvReportFields}
	if vg != "" {
		argv = append(argv, target)
	}

	var devices []string
	if cachedVG, ok := e.store.vgEntry(vg); ok && !cachedVG.isStale() {
		devices = cachedVG.record.PVNames
	}

	rc, out, _, err := e.runRead(ctx, argv, devices)
	if err != nil {
		return err
	}

	scopeKeys := make([]LVKey, 0, len(lvNames))
	for _, n := range lvNames {
		scopeKeys = append(scopeKeys, LVKey{VG: vg, LV: n})
	}
	if len(lvNames) == 0 && vg != "" {
		scopeKeys = e.store.lvKeysInVG(vg)
	}

	if rc != 0 {
		e.markFailedReloadUnreadableLV(scopeKeys)
		return fmt.Errorf("lvs failed with exit code %d", rc)
	}

	var parsed []LV
	for _, line := range out {
		lv, perr := ParseLVLine(line)
		if perr != nil {
			return perr
		}
		parsed = append(parsed, lv)
	}
	parsed = firstExtentOnly(parsed)

	seen := make(map[LVKey]bool, len(parsed))
	for _, lv := range parsed {
		key := LVKey{VG: lv.VGName, LV: lv.Name}
		seen[key] = true
		e.store.upsertLV(lv)
	}

	for _, key := range scopeKeys {
		if !seen[key] {
			e.store.deleteLV(key)
		}
	}

	if vg != "" && len(lvNames) == 0 {
		e.store.markVGFreshLV(vg)
	}
	return nil
}

// markFailedReloadUnreadable replaces any previously-Stale scoped PV/VG
// entry with Unreadable after a failed reload (§4.5 "On failure"), logging
// a capped list of the affected names.
func (e *Engine) markFailedReloadUnreadable(ctx context.Context, command string, names []string, staleNames func() []string, markUnreadable func(string)) {
	stale := staleNames()
	isStale := make(map[string]bool, len(stale))
	for _, n := range stale {
		isStale[n] = true
	}
	scope := names
	if len(scope) == 0 {
		scope = stale
	}
	var affected []string
	for _, n := range scope {
		if !isStale[n] {
			continue
		}
		markUnreadable(n)
		affected = append(affected, n)
	}
	if len(affected) > 0 {
		lvmlog.FromContext(ctx).Info("reload failed, marking entries unreadable", "command", command, "names", capNames(affected))
	}
}

func (e *Engine) markFailedReloadUnreadableLV(keys []LVKey) {
	for _, key := range keys {
		if entry, ok := e.store.lvEntry(key); ok && entry.isStale() {
			e.store.markLVUnreadable(key)
		}
	}
}

// dropMissing deletes entries that were in scope (or, if scope is empty,
// every cached name) but did not appear in a successful reload's output.
func (e *Engine) dropMissing(ctx context.Context, scope []string, seen map[string]bool, allNames func() []string, del func(string)) {
	names := scope
	if len(names) == 0 {
		names = allNames()
	}
	var missing []string
	for _, n := range names {
		if !seen[n] {
			del(n)
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		lvmlog.FromContext(ctx).Info("reload found entries gone, dropping from cache", "names", capNames(missing))
	}
}

// --- invalidation primitives (§4.5), all taking the cache mutex via cacheStore ---

// InvalidatePV marks a single PV stale.
func (e *Engine) InvalidatePV(name string) { e.store.markPVStale(name) }

// InvalidateVG marks a single VG stale.
func (e *Engine) InvalidateVG(name string) { e.store.markVGStale(name) }

// InvalidateLV marks a single LV stale.
func (e *Engine) InvalidateLV(vg, lv string) { e.store.markLVStale(LVKey{VG: vg, LV: lv}) }

// InvalidatePVsInVG marks every PV belonging to vg stale.
func (e *Engine) InvalidatePVsInVG(vg VG) { e.store.markAllPVsInVGStale(vg.Name, vg.PVNames) }

// InvalidateLVsInVG marks every cached LV in vg stale.
func (e *Engine) InvalidateLVsInVG(vg string) { e.store.markAllLVsInVGStale(vg) }

// RemovePV clears a PV entry outright (no stale marker left behind).
func (e *Engine) RemovePV(name string) { e.store.deletePV(name) }

// RemoveVG clears a VG entry outright.
func (e *Engine) RemoveVG(name string) { e.store.deleteVG(name) }

// RemoveLV clears an LV entry outright.
func (e *Engine) RemoveLV(vg, lv string) { e.store.deleteLV(LVKey{VG: vg, LV: lv}) }

// Flush destroys all three maps and marks both global stale flags (§4.5).
func (e *Engine) Flush() { e.store.flush() }

// --- read API (§4.6) ---

// GetPV returns a single PV snapshot, reloading on miss or stale.
func (e *Engine) GetPV(ctx context.Context, name string) (PV, error) {
	entry, ok := e.store.pvEntry(name)
	if ok && !entry.isStale() {
		e.stats.recordHit()
		return entry.get()
	}
	e.stats.recordMiss()
	if err := e.reloadPVs(ctx, []string{name}); err != nil {
		return PV{}, err
	}
	entry, ok = e.store.pvEntry(name)
	if !ok {
		return PV{}, &lvmerr.InaccessiblePhysDev{Device: name}
	}
	return entry.get()
}

// GetAllPVs returns every fresh PV, bulk-reloading if the global stale flag
// is set, else reloading only individually-stale entries.
func (e *Engine) GetAllPVs(ctx context.Context) ([]PV, error) {
	if e.store.isStalePV() {
		e.stats.recordMiss()
		if err := e.reloadPVs(ctx, nil); err != nil {
			return nil, err
		}
		return e.store.allFreshPVs(), nil
	}
	for _, name := range e.store.stalePVNames() {
		e.stats.recordMiss()
		_ = e.reloadPVs(ctx, []string{name})
	}
	e.stats.recordHit()
	return e.store.allFreshPVs(), nil
}

// GetVG returns a single VG snapshot, reloading on miss or stale.
func (e *Engine) GetVG(ctx context.Context, name string) (VG, error) {
	entry, ok := e.store.vgEntry(name)
	if ok && !entry.isStale() {
		e.stats.recordHit()
		return entry.get()
	}
	e.stats.recordMiss()
	if err := e.reloadVGs(ctx, []string{name}); err != nil {
		return VG{}, err
	}
	entry, ok = e.store.vgEntry(name)
	if !ok {
		return VG{}, &lvmerr.VolumeGroupDoesNotExist{VG: name}
	}
	return entry.get()
}

// GetVGs reloads names (fresh or not) and returns every fresh VG whose name
// appears in names; the result is filtered to names even though reloadVGs
// parses every row the underlying vgs call returns (Open Question 2).
func (e *Engine) GetVGs(ctx context.Context, names []string) ([]VG, error) {
	if err := e.reloadVGs(ctx, names); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []VG
	for _, vg := range e.store.allFreshVGs() {
		if want[vg.Name] {
			out = append(out, vg)
		}
	}
	return out, nil
}

// GetAllVGs returns every fresh VG, bulk-reloading if the global stale flag
// is set, else reloading only individually-stale entries.
func (e *Engine) GetAllVGs(ctx context.Context) ([]VG, error) {
	if e.store.isStaleVG() {
		e.stats.recordMiss()
		if err := e.reloadVGs(ctx, nil); err != nil {
			return nil, err
		}
		return e.store.allFreshVGs(), nil
	}
	for _, name := range e.store.staleVGNames() {
		e.stats.recordMiss()
		_ = e.reloadVGs(ctx, []string{name})
	}
	e.stats.recordHit()
	return e.store.allFreshVGs(), nil
}

// GetLV returns a single LV snapshot scoped to (vg,lv), reloading on miss
// or stale (§4.6). A failed scoped reload returns the reload error (a
// previously-stale entry is left Unreadable in the cache); a reload that
// does not list the LV returns LogicalVolumeDoesNotExistError.
func (e *Engine) GetLV(ctx context.Context, vg, lv string) (LV, error) {
	key := LVKey{VG: vg, LV: lv}
	entry, ok := e.store.lvEntry(key)
	if ok && !entry.isStale() {
		e.stats.recordHit()
		return entry.get()
	}
	e.stats.recordMiss()
	if err := e.reloadLVs(ctx, vg, []string{lv}); err != nil {
		return LV{}, err
	}
	entry, ok = e.store.lvEntry(key)
	if !ok {
		return LV{}, &lvmerr.LogicalVolumeDoesNotExistError{VG: vg, LV: lv}
	}
	return entry.get()
}

// GetLVsInVG returns only Fresh LVs matching vg, reloading iff LV caching
// is disabled, the VG is not known fully fresh, or any cached LV in it is
// stale (§4.6).
func (e *Engine) GetLVsInVG(ctx context.Context, vg string) ([]LV, error) {
	needsReload := !e.lvCachingEnabled || !e.store.isVGFreshLV(vg) || e.store.anyLVStaleInVG(vg)
	if needsReload {
		e.stats.recordMiss()
		if err := e.reloadLVs(ctx, vg, nil); err != nil {
			return nil, err
		}
	} else {
		e.stats.recordHit()
	}
	return e.store.allFreshLVsInVG(vg), nil
}

// ListVGNames reads the VG map without taking the cache mutex, a tolerated
// stale-snapshot race per Open Question 3 (mirrors listPVNames in the
// original).
func (e *Engine) ListVGNames() []string {
	return e.store.vgNamesUnlocked()
}
