// evictor.go houses the eviction loop for Store.  Every EvictInterval it
// scans the map and removes:
//
//   - sessions idle longer than idleTTL
//   - least-recently-used sessions when the map size exceeds maxEntries
//
// Each eviction is logged at debug level and counted in Prometheus.
package session

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/intake/internal/metrics"
)

// Run sweeps on EvictInterval until ctx ends.
func (st *Store) Run(ctx context.Context) {
	t := time.NewTicker(EvictInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st.Sweep()
		}
	}
}

// Sweep runs one idle pass followed by one LRU pass and returns the number
// of sessions evicted.
func (st *Store) Sweep() int {
	now := st.now().UnixNano()
	evicted := 0

	// ----------------------------------------------------------------
	// Idle eviction pass
	// ----------------------------------------------------------------
	st.m.Range(func(key, value any) bool {
		s := value.(*Session)
		idle := time.Duration(now - s.lastSeen.Load())
		if idle > st.idleTTL {
			if st.evict(key.(string)) {
				evicted++
				zap.S().Debugw("session evicted", "session", key, "idle", idle.Truncate(time.Second))
			}
		}
		return true
	})

	// ----------------------------------------------------------------
	// LRU eviction pass
	// ----------------------------------------------------------------
	over := st.Len() - st.maxEntries
	if over <= 0 {
		return evicted
	}

	type kv struct {
		id string
		at int64
	}
	all := make([]kv, 0, st.Len())
	st.m.Range(func(key, value any) bool {
		all = append(all, kv{id: key.(string), at: value.(*Session).lastSeen.Load()})
		return true
	})
	sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })

	for i := 0; i < over && i < len(all); i++ {
		if st.evict(all[i].id) {
			evicted++
			zap.S().Debugw("session evicted (LRU pressure)", "session", all[i].id)
		}
	}
	return evicted
}

func (st *Store) evict(id string) bool {
	if _, ok := st.m.LoadAndDelete(id); !ok {
		return false
	}
	st.count.Add(-1)
	metrics.ActiveSessions.Dec()
	metrics.SessionEvictTotal.Inc()
	return true
}
