package strata

// LatestAtQuery asks, per component, for the most recent qualifying value
// at or before one point on one timeline.
type LatestAtQuery struct {
	Entity     EntityPath
	Timeline   Timeline
	At         TimeInt
	Components []ComponentName
}

// LatestAtEntry is one resolved component value.
type LatestAtEntry struct {
	Component ComponentName
	// Time is nil for static values, which are valid since negative
	// infinity on every timeline.
	Time  *TimeInt
	RowID RowID
	Value *Value
}

// IsStatic reports whether the entry came from the static table.
func (e LatestAtEntry) IsStatic() bool {
	return e.Time == nil
}

// LatestAtResult holds per-component resolution outcomes. A component
// missing from Components simply has no qualifying data; that is a
// first-class outcome, not an error. Components are resolved independently:
// entries in one result are not guaranteed to originate from the same
// physical logging call.
type LatestAtResult struct {
	Entity     EntityPath
	Timeline   Timeline
	At         TimeInt
	Components map[ComponentName]LatestAtEntry
}

// Get returns the entry for one component and whether it was found.
func (r LatestAtResult) Get(name ComponentName) (LatestAtEntry, bool) {
	e, ok := r.Components[name]
	return e, ok
}

// LatestAt resolves each requested component independently: the static
// value for (entity, component) wins when present; otherwise the temporal
// row with the greatest (time, RowID) at or before q.At that logged the
// component. Results are pure reads over the immutable chunks referenced at
// call time.
func (s *Store) LatestAt(q LatestAtQuery) LatestAtResult {
	if s.cache != nil {
		if cached, ok := s.cache.get(q); ok {
			return cached
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := LatestAtResult{
		Entity:     q.Entity,
		Timeline:   q.Timeline,
		At:         q.At,
		Components: make(map[ComponentName]LatestAtEntry, len(q.Components)),
	}

	var touched []ChunkID
	for _, name := range q.Components {
		entry, from, ok := s.latestAtComponentLocked(q.Entity, q.Timeline, q.At, name)
		if !ok {
			continue
		}
		result.Components[name] = entry
		touched = append(touched, from)
	}

	// The put happens before the read lock is released. Writers invalidate
	// under the write lock, so a result resolved against pre-write state is
	// always cached before the write's invalidation pass and never survives
	// it.
	if s.cache != nil {
		s.cache.put(q, result, touched)
	}
	return result
}

// latestAtComponentLocked resolves one component. Returns the entry, the id
// of the chunk it came from, and whether anything qualified.
func (s *Store) latestAtComponentLocked(entity EntityPath, tl Timeline, at TimeInt, name ComponentName) (LatestAtEntry, ChunkID, bool) {
	if static := s.staticChunkLocked(entity, name); static != nil {
		if entry, ok := latestStaticEntry(static, name); ok {
			return entry, static.ID(), true
		}
	}

	chunks := s.chunksOverlappingLocked(entity, tl, name, RangeUntil(at))

	var (
		best      LatestAtEntry
		bestChunk ChunkID
		found     bool
	)
	for _, chunk := range chunks {
		entry, ok := latestTemporalEntry(chunk, tl, at, name)
		if !ok {
			continue
		}
		if !found || laterEntry(entry, best) {
			best = entry
			bestChunk = chunk.ID()
			found = true
		}
	}
	return best, bestChunk, found
}

// latestStaticEntry picks the row with the greatest RowID that logged the
// component. Duplicate row ids degrade to the later physical row.
func latestStaticEntry(chunk *Chunk, name ComponentName) (LatestAtEntry, bool) {
	var (
		best  LatestAtEntry
		found bool
	)
	for i := 0; i < chunk.NumRows(); i++ {
		v := chunk.Cell(name, i)
		if v == nil {
			continue
		}
		id := chunk.RowIDAt(i)
		if !found || !id.Less(best.RowID) {
			best = LatestAtEntry{Component: name, RowID: id, Value: v}
			found = true
		}
	}
	return best, found
}

// latestTemporalEntry walks the chunk's rows in descending (time, RowID)
// order and returns the first row at or before the cutoff that logged the
// component.
func latestTemporalEntry(chunk *Chunk, tl Timeline, at TimeInt, name ComponentName) (LatestAtEntry, bool) {
	times, ok := chunk.Times(tl)
	if !ok {
		return LatestAtEntry{}, false
	}
	perm := chunk.rowOrderOn(tl)

	for i := chunk.NumRows() - 1; i >= 0; i-- {
		row := i
		if perm != nil {
			row = perm[i]
		}
		t := times[row]
		if t > at {
			continue
		}
		v := chunk.Cell(name, row)
		if v == nil {
			continue
		}
		tCopy := t
		return LatestAtEntry{Component: name, Time: &tCopy, RowID: chunk.RowIDAt(row), Value: v}, true
	}
	return LatestAtEntry{}, false
}

// laterEntry reports whether a should replace b: greater time first, then
// greater RowID. Exact ties keep the incumbent, an arbitrary survivor.
func laterEntry(a, b LatestAtEntry) bool {
	at, bt := *a.Time, *b.Time
	if at != bt {
		return at > bt
	}
	return b.RowID.Less(a.RowID)
}
