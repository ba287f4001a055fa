package lvm

import (
	"errors"
	"testing"

	"github.com/invatu/lvmengine/internal/lvmerr"
)

func TestCacheEntryStates(t *testing.T) {
	fresh := newFreshEntry("pv0", PV{Name: "pv0"})
	if fresh.isStale() {
		t.Errorf("fresh entry reports stale")
	}
	if _, err := fresh.get(); err != nil {
		t.Errorf("fresh entry get() returned error: %v", err)
	}

	stale := newStaleEntry[PV]("pv0")
	if !stale.isStale() {
		t.Errorf("stale entry does not report stale")
	}
	if _, err := stale.get(); err != nil {
		t.Errorf("stale entry get() must still return its (possibly zero) record without error, got: %v", err)
	}

	unreadable := newUnreadableEntry[PV]("pv0")
	if !unreadable.isStale() {
		t.Errorf("unreadable entry does not report stale")
	}
	_, err := unreadable.get()
	if err == nil {
		t.Fatalf("expected error from unreadable entry get()")
	}
	var target *lvmerr.UnreadableEntry
	if !errors.As(err, &target) {
		t.Errorf("expected *lvmerr.UnreadableEntry, got %T", err)
	}
}

func TestCacheStorePVLifecycle(t *testing.T) {
	s := newCacheStore()
	s.upsertPV(PV{Name: "pv0", Size: 100})

	e, ok := s.pvEntry("pv0")
	if !ok {
		t.Fatalf("expected pv0 to be present")
	}
	if e.isStale() {
		t.Errorf("freshly upserted PV reports stale")
	}
	if got := s.allFreshPVs(); len(got) != 1 || got[0].Name != "pv0" {
		t.Errorf("allFreshPVs() = %+v", got)
	}

	s.markPVStale("pv0")
	if names := s.stalePVNames(); len(names) != 1 || names[0] != "pv0" {
		t.Errorf("stalePVNames() = %v", names)
	}
	if got := s.allFreshPVs(); len(got) != 0 {
		t.Errorf("expected no fresh PVs after marking stale, got %+v", got)
	}

	s.markPVUnreadable("pv0")
	e, _ = s.pvEntry("pv0")
	if _, err := e.get(); err == nil {
		t.Errorf("expected error after markPVUnreadable")
	}

	s.deletePV("pv0")
	if _, ok := s.pvEntry("pv0"); ok {
		t.Errorf("expected pv0 to be gone after delete")
	}
}

func TestCacheStoreVGFreshLVTracking(t *testing.T) {
	s := newCacheStore()
	s.upsertLV(LV{UUID: "u", Name: "lv0", VGName: "vg0"})
	s.markVGFreshLV("vg0")

	if !s.isVGFreshLV("vg0") {
		t.Fatalf("expected vg0 LVs to be marked fresh")
	}
	if s.anyLVStaleInVG("vg0") {
		t.Errorf("expected no stale LVs in vg0")
	}

	// Marking the VG itself stale must clear the freshlv flag (§4.6).
	s.upsertVG(VG{Name: "vg0"})
	s.markVGStale("vg0")
	if s.isVGFreshLV("vg0") {
		t.Errorf("markVGStale must clear freshlv for the VG")
	}

	s.markVGFreshLV("vg0")
	// Marking a single LV within the VG stale must also clear freshlv.
	s.markLVStale(LVKey{VG: "vg0", LV: "lv0"})
	if s.isVGFreshLV("vg0") {
		t.Errorf("markLVStale must clear freshlv for its VG")
	}
	if !s.anyLVStaleInVG("vg0") {
		t.Errorf("expected anyLVStaleInVG(vg0) true after markLVStale")
	}
}

func TestCacheStoreMarkAllLVsInVGStale(t *testing.T) {
	s := newCacheStore()
	s.upsertLV(LV{UUID: "a", Name: "a", VGName: "vg0"})
	s.upsertLV(LV{UUID: "b", Name: "b", VGName: "vg0"})
	s.upsertLV(LV{UUID: "c", Name: "c", VGName: "vg1"})
	s.markVGFreshLV("vg0")

	s.markAllLVsInVGStale("vg0")

	if s.isVGFreshLV("vg0") {
		t.Errorf("expected freshlv cleared for vg0")
	}
	if len(s.allFreshLVsInVG("vg0")) != 0 {
		t.Errorf("expected no fresh LVs left in vg0")
	}
	if len(s.allFreshLVsInVG("vg1")) != 1 {
		t.Errorf("expected vg1's LV to be untouched")
	}
}

func TestCacheStoreFlush(t *testing.T) {
	s := newCacheStore()
	s.upsertPV(PV{Name: "pv0"})
	s.upsertVG(VG{Name: "vg0"})
	s.upsertLV(LV{UUID: "u", Name: "lv0", VGName: "vg0"})
	s.markVGFreshLV("vg0")
	s.setStalePV(false)
	s.setStaleVG(false)

	s.flush()

	if len(s.pvNames()) != 0 || len(s.vgNames()) != 0 {
		t.Errorf("expected all maps cleared after flush")
	}
	if s.isVGFreshLV("vg0") {
		t.Errorf("expected freshlv cleared after flush")
	}
	if !s.isStalePV() || !s.isStaleVG() {
		t.Errorf("expected both global stale flags set after flush")
	}
}

func TestCacheStoreMarkAllPVsInVGStale(t *testing.T) {
	s := newCacheStore()
	s.upsertPV(PV{Name: "pv0"})
	s.upsertPV(PV{Name: "pv1"})

	s.markAllPVsInVGStale("vg0", []string{"pv0", "pv1"})

	names := s.stalePVNames()
	if len(names) != 2 {
		t.Errorf("expected both PVs stale, got %v", names)
	}
}
