package lvm

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheStats is the locked hit/miss counter of §4.6, additionally feeding
// prometheus counters/gauge the way the pack's exporter-style direct
// promauto/MustRegister usage does (e.g. zfs_exporter, velero-pvc-watcher).
type CacheStats struct {
	mu     sync.Mutex
	hits   uint64
	misses uint64

	hitsTotal   prometheus.Counter
	missesTotal prometheus.Counter
}

// NewCacheStats constructs a CacheStats and, if reg is non-nil, registers
// its prometheus collectors under it.
func NewCacheStats(reg prometheus.Registerer) *CacheStats {
	s := &CacheStats{
		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvmengine_cache_hits_total",
			Help: "Number of cache lookups resolved without a reload.",
		}),
		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lvmengine_cache_misses_total",
			Help: "Number of cache lookups that triggered a reload.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.hitsTotal, s.missesTotal, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "lvmengine_cache_hit_ratio",
				Help: "Live cache hit ratio (hits / (hits+misses)).",
			},
			s.HitRatio,
		))
	}
	return s
}

func (s *CacheStats) recordHit() {
	s.mu.Lock()
	s.hits++
	s.mu.Unlock()
	if s.hitsTotal != nil {
		s.hitsTotal.Inc()
	}
}

func (s *CacheStats) recordMiss() {
	s.mu.Lock()
	s.misses++
	s.mu.Unlock()
	if s.missesTotal != nil {
		s.missesTotal.Inc()
	}
}

// Snapshot is the {hits, misses, hit_ratio} tuple returned by the public
// Stats() accessor.
type Snapshot struct {
	Hits     uint64
	Misses   uint64
	HitRatio float64
}

// Snapshot returns the current counters.
func (s *CacheStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Hits: s.hits, Misses: s.misses, HitRatio: hitRatio(s.hits, s.misses)}
}

// HitRatio returns hits/(hits+misses), used directly as a GaugeFunc.
func (s *CacheStats) HitRatio() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return hitRatio(s.hits, s.misses)
}

func hitRatio(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
