package strata

import "sort"

// ChunksOverlapping returns the temporal chunks whose coordinate range on
// the timeline intersects the queried range, for one (entity, timeline,
// component) bucket, in (min time, ChunkID) order. The returned slice is a
// snapshot safe to use without further locking: chunks are immutable.
func (s *Store) ChunksOverlapping(entity EntityPath, tl Timeline, component ComponentName, r TimeRange) []*Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chunksOverlappingLocked(entity, tl, component, r)
}

func (s *Store) chunksOverlappingLocked(entity EntityPath, tl Timeline, component ComponentName, r TimeRange) []*Chunk {
	if r.IsEmpty() {
		return nil
	}

	byTimeline, ok := s.temporal[entity]
	if !ok {
		return nil
	}
	byComponent, ok := byTimeline[tl]
	if !ok {
		return nil
	}
	bucket := byComponent[component]
	if len(bucket) == 0 {
		return nil
	}

	out := make([]*Chunk, 0, len(bucket))
	for _, chunk := range bucket {
		cr, _ := chunk.TimeRangeOn(tl)
		if cr.Min > r.Max {
			// Bucket is ordered by min time; nothing later can intersect.
			break
		}
		if cr.Intersects(r) {
			out = append(out, chunk)
		}
	}
	return out
}

// StaticChunk returns the single surviving static chunk for the
// (entity, component) pair, or nil.
func (s *Store) StaticChunk(entity EntityPath, component ComponentName) *Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staticChunkLocked(entity, component)
}

func (s *Store) staticChunkLocked(entity EntityPath, component ComponentName) *Chunk {
	byComponent, ok := s.static[entity]
	if !ok {
		return nil
	}
	return byComponent[component]
}

// AllComponents returns every component logged for the entity on the
// timeline, in sorted order. Static components are included: a static value
// is valid on every timeline.
func (s *Store) AllComponents(entity EntityPath, tl Timeline) []ComponentName {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[ComponentName]struct{})
	if byTimeline, ok := s.temporal[entity]; ok {
		for name := range byTimeline[tl] {
			set[name] = struct{}{}
		}
	}
	for name := range s.static[entity] {
		set[name] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}

	out := make([]ComponentName, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Entities returns every entity with at least one indexed chunk, sorted by
// path.
func (s *Store) Entities() []EntityPath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(map[EntityPath]struct{}, len(s.temporal)+len(s.static))
	for e := range s.temporal {
		set[e] = struct{}{}
	}
	for e := range s.static {
		set[e] = struct{}{}
	}

	out := make([]EntityPath, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Timelines returns every timeline the entity has temporal data on, sorted
// by name.
func (s *Store) Timelines(entity EntityPath) []Timeline {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTimeline, ok := s.temporal[entity]
	if !ok {
		return nil
	}
	out := make([]Timeline, 0, len(byTimeline))
	for tl := range byTimeline {
		out = append(out, tl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
