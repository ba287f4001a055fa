package lvm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"

	"github.com/invatu/lvmengine/internal/lvmerr"
	"github.com/invatu/lvmengine/internal/lvmlog"
)

// Tunables per §5 / §4.4.
const (
	MaxCommands            = 10
	ReadOnlyRetries         = 4
	RetryDelay              = 100 * time.Millisecond
	RetryBackoffMultiplier  = 2.0
	maxLoggedInvalidNames   = 20
)

// LVMBinary is the default path to the lvm executable, matching the
// teacher's host-constant style (internal/lvmd/command declares lvm at
// "/sbin/lvm").
const LVMBinary = "/sbin/lvm"

var (
	pvReportFields = "pv_uuid,pv_name,pv_size,vg_name,vg_uuid,pe_start,pe_count,pe_alloc_count,pv_mda_count,dev_size,pv_mda_used_count"
	vgReportFields = "vg_uuid,vg_name,vg_attr,vg_size,vg_free,vg_extent_size,vg_extent_count,vg_free_count,vg_tags,vg_mda_size,vg_mda_free,lv_count,pv_count,pv_name"
	lvReportFields = "lv_uuid,lv_name,vg_name,lv_attr,lv_size,seg_start_pe,devices,lv_tags"

	readSuffix  = []string{"--noheadings", "--units", "b", "--nosuffix", "--separator", "|", "--ignoreskippedcluster"}
	writeSuffix = []string{"--autobackup", "n"}
)

// commandKind distinguishes the read-only report suffix from the
// mutating-command suffix appended by wrapArgs (§6).
type commandKind int

const (
	readCommand commandKind = iota
	writeCommand
)

// MultipathLister is the out-of-scope multipath enumeration collaborator
// (§1): it returns the current set of multipath device paths the Filter
// Builder should accept.
type MultipathLister func(ctx context.Context) ([]string, error)

// AllowlistSource returns the current static device allowlist, backed in
// practice by internal/config's irs.lvm_dev_whitelist (§6, §4.10).
type AllowlistSource func() []string

// Engine is the Cache Engine of §4.4-§4.7: it owns the cache store, the
// global device filter, the command semaphore, the read-only mode switch,
// and the retry policy. Per §9's "explicit engine handle" decision there is
// no package-level singleton; callers construct one and thread it through.
type Engine struct {
	runner Runner
	store  *cacheStore
	stats  *CacheStats

	multipath MultipathLister
	allowlist AllowlistSource

	filterMu     sync.Mutex
	filterCached string
	filterStale  bool

	cmdSem *semaphore.Weighted

	roMu     sync.RWMutex
	readOnly bool

	// lvCachingEnabled, when false, forces getLV(vg) to always reload
	// (§4.6 read semantics, condition (a)).
	lvCachingEnabled bool

	// sleep is the retry-ladder's wait primitive; overridden in tests to
	// avoid real time.Sleep delays while still exercising the schedule.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewEngine constructs a Cache Engine. multipath and allowlist are the
// out-of-scope collaborators described in §1/§6.
func NewEngine(runner Runner, multipath MultipathLister, allowlist AllowlistSource) *Engine {
	return &Engine{
		runner:           runner,
		store:            newCacheStore(),
		stats:            NewCacheStats(nil),
		multipath:        multipath,
		allowlist:        allowlist,
		cmdSem:           semaphore.NewWeighted(MaxCommands),
		filterStale:      true,
		lvCachingEnabled: true,
		sleep:            realSleep,
	}
}

// WithCacheStats swaps in a CacheStats constructed with a prometheus
// registerer (used by cmd/lvmengine to expose the metrics named in §4.6).
func (e *Engine) WithCacheStats(stats *CacheStats) *Engine {
	e.stats = stats
	return e
}

func realSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns the current {hits, misses, hit_ratio} snapshot (§4.6).
func (e *Engine) Stats() Snapshot { return e.stats.Snapshot() }

// SetReadOnly implements the mode switch of §4.7: it takes the read-only
// lock exclusively, which waits for every in-flight cmd() to finish (§8
// invariant 4), before flipping the flag consulted by the next cmd() call.
func (e *Engine) SetReadOnly(readOnly bool) {
	e.roMu.Lock()
	defer e.roMu.Unlock()
	e.readOnly = readOnly
}

// IsReadOnly reports the engine's current locking mode.
func (e *Engine) IsReadOnly() bool {
	e.roMu.RLock()
	defer e.roMu.RUnlock()
	return e.readOnly
}

// DisableLVCaching turns off the "fresh-lvs-known-for-vg" shortcut so
// getLV(vg) always reloads (§4.6 condition (a)).
func (e *Engine) DisableLVCaching() { e.lvCachingEnabled = false }

// InvalidateFilter marks the global device filter stale without touching
// the PV/VG/LV caches (§4.10): used after multipath topology changes.
func (e *Engine) InvalidateFilter() {
	e.filterMu.Lock()
	e.filterStale = true
	e.filterMu.Unlock()
}

// globalFilter returns the memoized filter, rebuilding it under
// filterMu if marked stale (§4.4 step 1, §9 "Filter lazily rebuilt").
func (e *Engine) globalFilter(ctx context.Context) (string, error) {
	e.filterMu.Lock()
	defer e.filterMu.Unlock()
	if !e.filterStale && e.filterCached != "" {
		return e.filterCached, nil
	}
	devices, err := e.multipath(ctx)
	if err != nil {
		return "", fmt.Errorf("enumerating multipath devices: %w", err)
	}
	filter := BuildFilter(devices, e.allowlist())
	e.filterCached = filter
	e.filterStale = false
	return filter, nil
}

func (e *Engine) markGlobalFilterStale() {
	e.filterMu.Lock()
	e.filterStale = true
	e.filterMu.Unlock()
}

// filterFor resolves the filter string to use for a command: a one-off
// filter scoped to devices if given, else the cached global filter.
func (e *Engine) filterFor(ctx context.Context, devices []string) (string, error) {
	if len(devices) > 0 {
		return BuildFilter(devices, e.allowlist()), nil
	}
	return e.globalFilter(ctx)
}

func (e *Engine) wrapArgs(argv []string, filter string, kind commandKind) []string {
	cfg := RenderConfig(filter, lockingTypeFor(e.readOnly))
	args := make([]string, 0, 2+len(argv)+len(readSuffix))
	args = append(args, "--config", cfg)
	args = append(args, argv...)
	if kind == readCommand {
		args = append(args, readSuffix...)
	} else {
		args = append(args, writeSuffix...)
	}
	return args
}

func argsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cmd implements the three-stage retry ladder of §4.4. Every attempt is
// made while holding the command semaphore and the read-only lock shared,
// acquired once for the whole call so that SetReadOnly drains the entire
// retry sequence, not just one attempt.
func (e *Engine) cmd(ctx context.Context, kind commandKind, argv []string, devices []string) (int, []string, []string, error) {
	if err := e.cmdSem.Acquire(ctx, 1); err != nil {
		return -1, nil, nil, err
	}
	defer e.cmdSem.Release(1)

	e.roMu.RLock()
	defer e.roMu.RUnlock()

	logger := lvmlog.FromContext(ctx)

	// Stage 1: specific-filter attempt.
	filter1, err := e.filterFor(ctx, devices)
	if err != nil {
		return -1, nil, nil, err
	}
	args1 := e.wrapArgs(argv, filter1, kind)
	rc, out, errLines, runErr := e.runner.Run(ctx, args1)
	if runErr != nil {
		return rc, out, errLines, runErr
	}
	if rc == 0 {
		return rc, out, errLines, nil
	}

	// Stage 2: wider-filter retry — mark the global filter stale, rebuild,
	// and only re-run if that actually changes the rendered command.
	e.markGlobalFilterStale()
	filter2, err := e.filterFor(ctx, nil)
	if err != nil {
		return -1, nil, nil, err
	}
	args2 := e.wrapArgs(argv, filter2, kind)
	if !argsEqual(args1, args2) {
		rc, out, errLines, runErr = e.runner.Run(ctx, args2)
		if runErr != nil {
			return rc, out, errLines, runErr
		}
		if rc == 0 {
			return rc, out, errLines, nil
		}
	}

	// Stage 3: read-only retry loop, only when in read-only mode.
	if !e.readOnly {
		return rc, out, errLines, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = RetryDelay
	bo.Multiplier = RetryBackoffMultiplier
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0
	bo.Reset() // NewExponentialBackOff() seeds currentInterval from its own defaults; re-seed from the fields above.

	for i := 0; i < ReadOnlyRetries; i++ {
		delay := bo.NextBackOff()
		logger.V(1).Info("retrying read-only lvm command", "attempt", i+1, "delay", delay)
		if err := e.sleep(ctx, delay); err != nil {
			return rc, out, errLines, err
		}
		rc, out, errLines, runErr = e.runner.Run(ctx, args2)
		if runErr != nil {
			return rc, out, errLines, runErr
		}
		if rc == 0 {
			return rc, out, errLines, nil
		}
	}

	return rc, out, errLines, nil
}

func (e *Engine) runRead(ctx context.Context, argv []string, devices []string) (int, []string, []string, error) {
	return e.cmd(ctx, readCommand, argv, devices)
}

func (e *Engine) runWrite(ctx context.Context, argv []string, devices []string) (int, []string, []string, error) {
	return e.cmd(ctx, writeCommand, argv, devices)
}

// capNames truncates a list of names for a capped log line (§4.10).
func capNames(names []string) string {
	if len(names) <= maxLoggedInvalidNames {
		return fmt.Sprintf("%v", names)
	}
	extra := len(names) - maxLoggedInvalidNames
	return fmt.Sprintf("%v (+%d more)", names[:maxLoggedInvalidNames], extra)
}
