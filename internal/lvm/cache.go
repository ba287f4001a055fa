package lvm

import (
	"sync"

	"github.com/invatu/lvmengine/internal/lvmerr"
)

// entryState distinguishes the three cache slot variants of §3: a slot is
// never a partially-valid record, only one of these three tags plus,
// for fresh, the record itself.
type entryState uint8

const (
	entryFresh entryState = iota
	entryStale
	entryUnreadable
)

// cacheEntry is the tagged-sum cache slot described in §9: attribute access
// on an Unreadable entry must fail, and is_stale() must be a cheap, total
// predicate.
type cacheEntry[T any] struct {
	state  entryState
	name   string
	record T
}

func newFreshEntry[T any](name string, record T) *cacheEntry[T] {
	return &cacheEntry[T]{state: entryFresh, name: name, record: record}
}

func newStaleEntry[T any](name string) *cacheEntry[T] {
	return &cacheEntry[T]{state: entryStale, name: name}
}

func newUnreadableEntry[T any](name string) *cacheEntry[T] {
	return &cacheEntry[T]{state: entryUnreadable, name: name}
}

// isStale is true for both Stale and Unreadable, per §3.
func (e *cacheEntry[T]) isStale() bool {
	return e.state == entryStale || e.state == entryUnreadable
}

// get returns the record, or a failed-reload error if the entry is
// Unreadable. A Stale entry returns its record without error; marking an
// entry stale drops the record, so that is the zero value — callers that
// need a real record must check isStale() first.
func (e *cacheEntry[T]) get() (T, error) {
	if e.state == entryUnreadable {
		var zero T
		return zero, &lvmerr.UnreadableEntry{Name: e.name}
	}
	return e.record, nil
}

// cacheStore owns the three PV/VG/LV mappings exclusively (§3 Ownership).
// All mutation goes through its locked methods; nothing here ever runs a
// command or blocks on I/O, satisfying the acquisition-order rule in §5
// that _lock is only ever held around pure in-memory updates.
type cacheStore struct {
	mu sync.Mutex

	pvs map[string]*cacheEntry[PV]
	vgs map[string]*cacheEntry[VG]
	lvs map[LVKey]*cacheEntry[LV]

	// freshlv records VGs whose LVs are known fully fresh, so getLV(vg)
	// need not reload when nothing has been invalidated since (§4.6).
	freshlv map[string]bool

	stalePV bool
	staleVG bool
}

func newCacheStore() *cacheStore {
	return &cacheStore{
		pvs:     make(map[string]*cacheEntry[PV]),
		vgs:     make(map[string]*cacheEntry[VG]),
		lvs:     make(map[LVKey]*cacheEntry[LV]),
		freshlv: make(map[string]bool),
	}
}

// --- PV ---

func (s *cacheStore) pvEntry(name string) (*cacheEntry[PV], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pvs[name]
	return e, ok
}

func (s *cacheStore) upsertPV(pv PV) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pvs[pv.Name] = newFreshEntry(pv.Name, pv)
}

func (s *cacheStore) markPVStale(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pvs[name] = newStaleEntry[PV](name)
}

func (s *cacheStore) markPVUnreadable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pvs[name] = newUnreadableEntry[PV](name)
}

func (s *cacheStore) deletePV(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pvs, name)
}

func (s *cacheStore) allFreshPVs() []PV {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PV, 0, len(s.pvs))
	for _, e := range s.pvs {
		if e.state == entryFresh {
			out = append(out, e.record)
		}
	}
	return out
}

func (s *cacheStore) stalePVNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name, e := range s.pvs {
		if e.isStale() {
			out = append(out, name)
		}
	}
	return out
}

// --- VG ---

func (s *cacheStore) vgEntry(name string) (*cacheEntry[VG], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.vgs[name]
	return e, ok
}

func (s *cacheStore) upsertVG(vg VG) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vgs[vg.Name] = newFreshEntry(vg.Name, vg)
}

func (s *cacheStore) markVGStale(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vgs[name] = newStaleEntry[VG](name)
	delete(s.freshlv, name)
}

func (s *cacheStore) markVGUnreadable(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vgs[name] = newUnreadableEntry[VG](name)
}

func (s *cacheStore) deleteVG(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.vgs, name)
	delete(s.freshlv, name)
}

func (s *cacheStore) allFreshVGs() []VG {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]VG, 0, len(s.vgs))
	for _, e := range s.vgs {
		if e.state == entryFresh {
			out = append(out, e.record)
		}
	}
	return out
}

func (s *cacheStore) staleVGNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name, e := range s.vgs {
		if e.isStale() {
			out = append(out, name)
		}
	}
	return out
}

func (s *cacheStore) pvNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pvs))
	for name := range s.pvs {
		out = append(out, name)
	}
	return out
}

func (s *cacheStore) vgNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.vgs))
	for name := range s.vgs {
		out = append(out, name)
	}
	return out
}

func (s *cacheStore) lvKeysInVG(vg string) []LVKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LVKey
	for key := range s.lvs {
		if key.VG == vg {
			out = append(out, key)
		}
	}
	return out
}

// vgNamesUnlocked returns every cached VG name without taking the lock.
// Open Question 3: listPVNames-equivalent callers tolerate this as a stale
// snapshot race; documented at the call site (ListVGNames in reload.go).
func (s *cacheStore) vgNamesUnlocked() []string {
	out := make([]string, 0, len(s.vgs))
	for name := range s.vgs {
		out = append(out, name)
	}
	return out
}

// --- LV ---

func (s *cacheStore) lvEntry(key LVKey) (*cacheEntry[LV], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lvs[key]
	return e, ok
}

func (s *cacheStore) upsertLV(lv LV) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := LVKey{VG: lv.VGName, LV: lv.Name}
	s.lvs[key] = newFreshEntry(key.LV, lv)
}

func (s *cacheStore) markLVStale(key LVKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lvs[key] = newStaleEntry[LV](key.LV)
	delete(s.freshlv, key.VG)
}

func (s *cacheStore) markLVUnreadable(key LVKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lvs[key] = newUnreadableEntry[LV](key.LV)
}

func (s *cacheStore) deleteLV(key LVKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lvs, key)
}

func (s *cacheStore) markAllLVsInVGStale(vg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.lvs {
		if key.VG == vg {
			s.lvs[key] = newStaleEntry[LV](key.LV)
		}
	}
	delete(s.freshlv, vg)
}

func (s *cacheStore) markAllPVsInVGStale(vgName string, pvNames []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range pvNames {
		s.pvs[name] = newStaleEntry[PV](name)
	}
}

func (s *cacheStore) allFreshLVsInVG(vg string) []LV {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LV
	for key, e := range s.lvs {
		if key.VG == vg && e.state == entryFresh {
			out = append(out, e.record)
		}
	}
	return out
}

func (s *cacheStore) anyLVStaleInVG(vg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.lvs {
		if key.VG == vg && e.isStale() {
			return true
		}
	}
	return false
}

func (s *cacheStore) markVGFreshLV(vg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freshlv[vg] = true
}

func (s *cacheStore) isVGFreshLV(vg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freshlv[vg]
}

// --- global flush/invalidate ---

// flush destroys all three maps and marks both global stale flags, per §4.5.
func (s *cacheStore) flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pvs = make(map[string]*cacheEntry[PV])
	s.vgs = make(map[string]*cacheEntry[VG])
	s.lvs = make(map[LVKey]*cacheEntry[LV])
	s.freshlv = make(map[string]bool)
	s.stalePV = true
	s.staleVG = true
}

func (s *cacheStore) setStalePV(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalePV = v
}

func (s *cacheStore) isStalePV() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stalePV
}

func (s *cacheStore) setStaleVG(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staleVG = v
}

func (s *cacheStore) isStaleVG() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staleVG
}
