package datagrid

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// memoCache is a single process-wide, bounded, approximate cache shared by
// every DataGrid's Check()/entropy computations: a ristretto.Cache
// wrapped with a string key built from the grid's identity, its version
// (bumped on every Stable re-entry, see recomputeStatistics/DeleteAll),
// and the computation name. A miss just means recomputing a pure function
// of the grid's current state, so an approximate admission policy costing
// the occasional spurious recompute is an acceptable trade here — unlike
// internal/colstore's LRU, which must be exactly reproducible.
var memoCache *ristretto.Cache

func init() {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		// A cache that fails to construct degrades to "always miss", not
		// a fatal condition: every computation below still works, just
		// without memoization.
		memoCache = nil
		return
	}
	memoCache = c
}

// memoKey identifies a (grid, computation, version) triple. The grid
// component is a process-unique id assigned at construction, not the
// pointer address: a reallocated grid reusing a freed address must miss,
// never hit, so correctness cannot depend on GC timing.
func memoKey(g *DataGrid, op string) string {
	return fmt.Sprintf("g%d:%s:%d", g.id, op, g.version)
}

func memoGetFloat(g *DataGrid, op string) (float64, bool) {
	if memoCache == nil {
		return 0, false
	}
	v, ok := memoCache.Get(memoKey(g, op))
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func memoSetFloat(g *DataGrid, op string, value float64) {
	if memoCache == nil {
		return
	}
	memoCache.SetWithTTL(memoKey(g, op), value, 1, 0)
	memoCache.Wait()
}

// checkOutcome is the cacheable shape of Check()'s result: an error isn't
// itself comparable/cacheable across calls in general, but here it is
// always either nil or a *snberr.Error built fresh from the same grid
// state, so caching the message is enough to reconstruct an equivalent
// failure without re-running the O(k·n²) scan.
type checkOutcome struct {
	failed  bool
	message string
}

func memoGetCheck(g *DataGrid) (checkOutcome, bool) {
	if memoCache == nil {
		return checkOutcome{}, false
	}
	v, ok := memoCache.Get(memoKey(g, "Check"))
	if !ok {
		return checkOutcome{}, false
	}
	co, ok := v.(checkOutcome)
	return co, ok
}

func memoSetCheck(g *DataGrid, outcome checkOutcome) {
	if memoCache == nil {
		return
	}
	memoCache.SetWithTTL(memoKey(g, "Check"), outcome, 1, 0)
	memoCache.Wait()
}
