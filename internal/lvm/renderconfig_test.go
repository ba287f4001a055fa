package lvm

import (
	"strings"
	"testing"
)

func TestRenderConfig(t *testing.T) {
	cfg := RenderConfig(`["r|.*|"]`, LockingTypeReadOnly)

	if strings.Contains(cfg, "\n") {
		t.Errorf("RenderConfig() must collapse newlines into a single line, got %q", cfg)
	}
	if !strings.Contains(cfg, `filter=["r|.*|"]`) {
		t.Errorf("RenderConfig() missing rendered filter, got %q", cfg)
	}
	if !strings.Contains(cfg, "locking_type=4") {
		t.Errorf("RenderConfig() missing locking_type=4, got %q", cfg)
	}
}

func TestLockingTypeFor(t *testing.T) {
	if got := lockingTypeFor(true); got != LockingTypeReadOnly {
		t.Errorf("lockingTypeFor(true) = %d, want %d", got, LockingTypeReadOnly)
	}
	if got := lockingTypeFor(false); got != LockingTypeReadWrite {
		t.Errorf("lockingTypeFor(false) = %d, want %d", got, LockingTypeReadWrite)
	}
}
