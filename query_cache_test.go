package strata

import "testing"

func cachedStore(t *testing.T, maxEntries int) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Cache.Enabled = true
	cfg.Cache.MaxEntries = maxEntries
	return NewStore(cfg)
}

func TestCache_HitMiss(t *testing.T) {
	s := cachedStore(t, 16)
	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}}))

	q := latestQuery(10, "Position")
	first := s.LatestAt(q)
	second := s.LatestAt(q)

	stats, ok := s.CacheStats()
	if !ok {
		t.Fatal("cache should be enabled")
	}
	if stats.MissCount != 1 || stats.HitCount != 1 {
		t.Errorf("hits/misses = %d/%d, want 1/1", stats.HitCount, stats.MissCount)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}

	fe, _ := first.Get("Position")
	se, _ := second.Get("Position")
	if fe.RowID != se.RowID || !fe.Value.Equal(se.Value) {
		t.Error("cached result should match the computed one")
	}
}

func TestCache_DistinctQueriesDistinctEntries(t *testing.T) {
	s := cachedStore(t, 16)
	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}, {2, 20}}))

	s.LatestAt(latestQuery(10, "Position"))
	s.LatestAt(latestQuery(20, "Position"))
	s.LatestAt(latestQuery(20, "Position", "Color"))

	stats, _ := s.CacheStats()
	if stats.Entries != 3 {
		t.Errorf("Entries = %d, want 3", stats.Entries)
	}
	if stats.HitCount != 0 {
		t.Errorf("HitCount = %d, want 0", stats.HitCount)
	}
}

func TestCache_InvalidatedByInsert(t *testing.T) {
	s := cachedStore(t, 16)
	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}}))

	q := latestQuery(100, "Position")
	before := s.LatestAt(q)
	if e, _ := before.Get("Position"); e.RowID != rid(1) {
		t.Fatalf("entry = %+v", e)
	}

	// New data for the entity must not be shadowed by a stale cache entry.
	mustInsert(t, s, tempChunk(t, 2, "world/robot", "Position", [][2]int64{{5, 50}}))

	after := s.LatestAt(q)
	if e, _ := after.Get("Position"); e.RowID != rid(5) {
		t.Errorf("entry = %+v, want the freshly inserted row", e)
	}

	stats, _ := s.CacheStats()
	if stats.InvalidationCount == 0 {
		t.Error("insert should have invalidated cached results")
	}
}

func TestCache_InvalidatedByRemove(t *testing.T) {
	s := cachedStore(t, 16)
	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}}))
	mustInsert(t, s, tempChunk(t, 2, "world/robot", "Position", [][2]int64{{5, 50}}))

	q := latestQuery(100, "Position")
	if e, _ := s.LatestAt(q).Get("Position"); e.RowID != rid(5) {
		t.Fatalf("entry = %+v", e)
	}

	s.Remove(cid(2))

	if e, ok := s.LatestAt(q).Get("Position"); !ok || e.RowID != rid(1) {
		t.Errorf("entry = %+v %v, want fallback to surviving chunk", e, ok)
	}
}

func TestCache_InvalidationIsPerEntity(t *testing.T) {
	s := cachedStore(t, 16)
	mustInsert(t, s, tempChunk(t, 1, "world/a", "Position", [][2]int64{{1, 10}}))
	mustInsert(t, s, tempChunk(t, 2, "world/b", "Position", [][2]int64{{2, 20}}))

	qa := LatestAtQuery{Entity: NewEntityPath("world/a"), Timeline: tlFrame, At: 100, Components: []ComponentName{"Position"}}
	qb := LatestAtQuery{Entity: NewEntityPath("world/b"), Timeline: tlFrame, At: 100, Components: []ComponentName{"Position"}}
	s.LatestAt(qa)
	s.LatestAt(qb)

	// Touching world/a leaves world/b's entry cached.
	mustInsert(t, s, tempChunk(t, 3, "world/a", "Position", [][2]int64{{3, 30}}))
	s.LatestAt(qb)

	stats, _ := s.CacheStats()
	if stats.HitCount != 1 {
		t.Errorf("HitCount = %d, want 1 (world/b untouched)", stats.HitCount)
	}
}

func TestCache_ConcurrentReadersNeverCacheStaleResults(t *testing.T) {
	s := cachedStore(t, 64)
	e := NewEntityPath("world/robot")
	q := LatestAtQuery{Entity: e, Timeline: tlFrame, At: TimeMax, Components: []ComponentName{"Position"}}

	// Readers race the writer below. A resolution computed against
	// pre-insert state must never outlive that insert's invalidation.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			s.LatestAt(q)
		}
	}()

	for i := 1; i <= 200; i++ {
		mustInsert(t, s, tempChunk(t, uint64(i), "world/robot", "Position",
			[][2]int64{{int64(i), int64(i * 10)}}))
	}
	<-done

	// Every insert has returned, so its invalidation pass has run; the
	// answer must reflect the final row whether served cached or fresh.
	entry, ok := s.LatestAt(q).Get("Position")
	if !ok || entry.RowID != rid(200) {
		t.Fatalf("entry = %+v %v, want row %v", entry, ok, rid(200))
	}
	entry, ok = s.LatestAt(q).Get("Position")
	if !ok || entry.RowID != rid(200) {
		t.Fatalf("cached entry = %+v %v, want row %v", entry, ok, rid(200))
	}
}

func TestCache_LRUBound(t *testing.T) {
	s := cachedStore(t, 2)
	mustInsert(t, s, tempChunk(t, 1, "world/robot", "Position", [][2]int64{{1, 10}, {2, 20}, {3, 30}}))

	s.LatestAt(latestQuery(10, "Position"))
	s.LatestAt(latestQuery(20, "Position"))
	s.LatestAt(latestQuery(30, "Position"))

	stats, _ := s.CacheStats()
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want capacity 2", stats.Entries)
	}

	// The evicted oldest query recomputes and still answers correctly.
	if e, ok := s.LatestAt(latestQuery(10, "Position")).Get("Position"); !ok || e.RowID != rid(1) {
		t.Errorf("entry = %+v %v", e, ok)
	}
}

func TestCache_DisabledByDefault(t *testing.T) {
	s := NewStore(DefaultConfig())
	if _, ok := s.CacheStats(); ok {
		t.Error("cache stats should report disabled")
	}
}
