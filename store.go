package strata

import (
	"log/slog"
	"sort"
	"sync"
)

// StoreEventKind distinguishes chunk lifecycle events.
type StoreEventKind int

const (
	// EventAddition signals a chunk entering the store.
	EventAddition StoreEventKind = iota
	// EventDeletion signals a chunk leaving the store. Downstream caches
	// keyed by ChunkID must invalidate on it.
	EventDeletion
)

func (k StoreEventKind) String() string {
	switch k {
	case EventAddition:
		return "addition"
	case EventDeletion:
		return "deletion"
	default:
		return "unknown"
	}
}

// StoreEvent describes one chunk addition or deletion. Deletion events are
// the invalidation signal consumers must honor: chunk references must not be
// retained past the deletion of their chunk.
type StoreEvent struct {
	Kind     StoreEventKind
	ChunkID  ChunkID
	Entity   EntityPath
	IsStatic bool
	// Chunk is the affected chunk. For deletions it is the last reference
	// the store hands out.
	Chunk *Chunk
}

// Store indexes immutable chunks by entity, timeline, and component, and
// serves the latest-at and range resolvers.
//
// Concurrency model: one logical writer (Insert, Remove, GC, Compact are
// serialized on the store lock), many parallel readers. Chunks are immutable
// once published, so queries snapshot chunk pointers under the read lock and
// then work lock-free; the runtime keeps those chunks alive for the duration
// of the query even if the garbage collector evicts them from the index.
type Store struct {
	config Config
	gen    *Generator

	mu sync.RWMutex

	byID map[ChunkID]*Chunk

	// temporal: entity -> timeline -> component -> chunks ordered by
	// (min time on that timeline, ChunkID). Overlapping chunks are
	// permitted and handled by a slower merge path at query time.
	temporal map[EntityPath]map[Timeline]map[ComponentName][]*Chunk

	// static: entity -> component -> the single most recent static chunk.
	// Older static chunks for the same pair are superseded and freed
	// immediately on write.
	static map[EntityPath]map[ComponentName]*Chunk

	stats StoreStats

	hub *ChangeHub

	cache *LatestAtCache
}

// NewStore creates an empty store.
func NewStore(cfg Config) *Store {
	cfg = cfg.withDefaults()
	s := &Store{
		config:   cfg,
		gen:      NewGenerator(),
		byID:     make(map[ChunkID]*Chunk),
		temporal: make(map[EntityPath]map[Timeline]map[ComponentName][]*Chunk),
		static:   make(map[EntityPath]map[ComponentName]*Chunk),
		stats:    EmptyStoreStats(),
	}
	if cfg.Cache.Enabled {
		s.cache = newLatestAtCache(cfg.Cache)
	}
	if cfg.Stream.Enabled {
		s.hub = NewChangeHub(cfg.Stream)
	}
	return s
}

// Config returns the store configuration.
func (s *Store) Config() Config {
	return s.config
}

// Insert registers a chunk in every (entity, timeline, component) bucket it
// participates in, or replaces the prior static chunk per component for
// static chunks. Running stats are updated in O(1) from the chunk's own
// stats. Inserting a chunk id already present is a no-op: content and stats
// are unchanged and the existing chunk survives.
func (s *Store) Insert(chunk *Chunk) ([]StoreEvent, error) {
	if chunk == nil {
		return nil, newMalformedChunkError(MalformedUnknown, ChunkID{}, "nil chunk")
	}

	s.mu.Lock()
	if _, exists := s.byID[chunk.ID()]; exists {
		s.mu.Unlock()
		slog.Debug("duplicate chunk id, keeping existing chunk",
			"chunk", chunk.ID().String(), "entity", chunk.Entity().String())
		return nil, nil
	}

	var events []StoreEvent
	s.byID[chunk.ID()] = chunk

	if chunk.IsStatic() {
		events = s.insertStaticLocked(chunk)
		s.stats.Static = s.stats.Static.Add(StatsForChunk(chunk))
	} else {
		s.insertTemporalLocked(chunk)
		s.stats.Temporal = s.stats.Temporal.Add(StatsForChunk(chunk))
	}

	events = append(events, StoreEvent{
		Kind:     EventAddition,
		ChunkID:  chunk.ID(),
		Entity:   chunk.Entity(),
		IsStatic: chunk.IsStatic(),
		Chunk:    chunk,
	})
	s.invalidateLocked(events)
	s.mu.Unlock()

	s.publish(events)
	return events, nil
}

// insertStaticLocked replaces the static chunk for every (entity, component)
// pair the new chunk covers and frees superseded chunks that no pair
// references anymore. Returns the deletion events for freed chunks.
func (s *Store) insertStaticLocked(chunk *Chunk) []StoreEvent {
	byComponent := s.static[chunk.Entity()]
	if byComponent == nil {
		byComponent = make(map[ComponentName]*Chunk)
		s.static[chunk.Entity()] = byComponent
	}

	displaced := make(map[ChunkID]*Chunk)
	for _, name := range chunk.Components() {
		if prev, ok := byComponent[name]; ok && prev.ID() != chunk.ID() {
			displaced[prev.ID()] = prev
		}
		byComponent[name] = chunk
	}

	var events []StoreEvent
	for id, prev := range displaced {
		if s.staticChunkReferencedLocked(prev) {
			continue
		}
		delete(s.byID, id)
		s.stats.Static = s.stats.Static.Subtract(StatsForChunk(prev))
		events = append(events, StoreEvent{
			Kind:     EventDeletion,
			ChunkID:  id,
			Entity:   prev.Entity(),
			IsStatic: true,
			Chunk:    prev,
		})
	}
	return events
}

func (s *Store) staticChunkReferencedLocked(chunk *Chunk) bool {
	byComponent := s.static[chunk.Entity()]
	for _, current := range byComponent {
		if current.ID() == chunk.ID() {
			return true
		}
	}
	return false
}

func (s *Store) insertTemporalLocked(chunk *Chunk) {
	byTimeline := s.temporal[chunk.Entity()]
	if byTimeline == nil {
		byTimeline = make(map[Timeline]map[ComponentName][]*Chunk)
		s.temporal[chunk.Entity()] = byTimeline
	}

	for _, tl := range chunk.Timelines() {
		byComponent := byTimeline[tl]
		if byComponent == nil {
			byComponent = make(map[ComponentName][]*Chunk)
			byTimeline[tl] = byComponent
		}
		for _, name := range chunk.Components() {
			byComponent[name] = insertChunkOrdered(byComponent[name], chunk, tl)
		}
	}
}

// insertChunkOrdered keeps a bucket ordered by (min time on tl, ChunkID).
func insertChunkOrdered(bucket []*Chunk, chunk *Chunk, tl Timeline) []*Chunk {
	newRange, _ := chunk.TimeRangeOn(tl)
	pos := sort.Search(len(bucket), func(i int) bool {
		r, _ := bucket[i].TimeRangeOn(tl)
		if r.Min != newRange.Min {
			return r.Min > newRange.Min
		}
		return chunk.ID().Compare(bucket[i].ID()) < 0
	})
	bucket = append(bucket, nil)
	copy(bucket[pos+1:], bucket[pos:])
	bucket[pos] = chunk
	return bucket
}

// Remove evicts a chunk by id, subtracting its stats and dropping every
// index membership. Removing an absent id is a no-op, not an error: a
// previous GC pass may already have claimed it.
func (s *Store) Remove(id ChunkID) []StoreEvent {
	s.mu.Lock()
	events := s.removeLocked(id)
	s.invalidateLocked(events)
	s.mu.Unlock()
	s.publish(events)
	return events
}

func (s *Store) removeLocked(id ChunkID) []StoreEvent {
	chunk, ok := s.byID[id]
	if !ok {
		return nil
	}
	delete(s.byID, id)

	if chunk.IsStatic() {
		byComponent := s.static[chunk.Entity()]
		for name, current := range byComponent {
			if current.ID() == id {
				delete(byComponent, name)
			}
		}
		if len(byComponent) == 0 {
			delete(s.static, chunk.Entity())
		}
		s.stats.Static = s.stats.Static.Subtract(StatsForChunk(chunk))
	} else {
		byTimeline := s.temporal[chunk.Entity()]
		for _, tl := range chunk.Timelines() {
			byComponent := byTimeline[tl]
			for _, name := range chunk.Components() {
				byComponent[name] = removeChunkFromBucket(byComponent[name], id)
				if len(byComponent[name]) == 0 {
					delete(byComponent, name)
				}
			}
			if len(byComponent) == 0 {
				delete(byTimeline, tl)
			}
		}
		if len(byTimeline) == 0 {
			delete(s.temporal, chunk.Entity())
		}
		s.stats.Temporal = s.stats.Temporal.Subtract(StatsForChunk(chunk))
	}

	return []StoreEvent{{
		Kind:     EventDeletion,
		ChunkID:  id,
		Entity:   chunk.Entity(),
		IsStatic: chunk.IsStatic(),
		Chunk:    chunk,
	}}
}

func removeChunkFromBucket(bucket []*Chunk, id ChunkID) []*Chunk {
	filtered := bucket[:0]
	for _, c := range bucket {
		if c.ID() != id {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

// Chunk returns the chunk by id.
func (s *Store) Chunk(id ChunkID) (*Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	return c, ok
}

// NumChunks returns the number of chunks currently indexed.
func (s *Store) NumChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Stats returns a copy of the running statistics.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// invalidateLocked drops cached results touched by the events. It must run
// before the write lock is released: LatestAt publishes into the cache while
// holding the read lock, so a put for a pre-write resolution cannot land
// after this write's invalidation pass.
func (s *Store) invalidateLocked(events []StoreEvent) {
	if s.cache == nil || len(events) == 0 {
		return
	}
	s.cache.handleEvents(events)
}

// publish forwards events to the attached hub, outside the store lock.
func (s *Store) publish(events []StoreEvent) {
	if s.hub == nil || len(events) == 0 {
		return
	}
	s.hub.PublishBatch(events)
}

// Compact merges adjacent same-schema temporal chunks of one entity while
// the combined size stays under the configured threshold. Merged chunks are
// swapped into the index atomically: the originals are removed, the merged
// chunk inserted, and stats stay exact throughout. Returns the emitted
// events.
func (s *Store) Compact(entity EntityPath) ([]StoreEvent, error) {
	s.mu.Lock()

	groups := make(map[string][]*Chunk)
	for _, chunk := range s.byID {
		if chunk.Entity() != entity || chunk.IsStatic() {
			continue
		}
		groups[schemaSignature(chunk)] = append(groups[schemaSignature(chunk)], chunk)
	}

	var all []StoreEvent
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		tl := group[0].Timelines()[0]
		sort.Slice(group, func(i, j int) bool {
			ri, _ := group[i].TimeRangeOn(tl)
			rj, _ := group[j].TimeRangeOn(tl)
			if ri.Min != rj.Min {
				return ri.Min < rj.Min
			}
			return group[i].ID().Compare(group[j].ID()) < 0
		})

		current := group[0]
		for _, next := range group[1:] {
			if current.SizeBytes()+next.SizeBytes() > s.config.Compaction.MaxChunkBytes {
				current = next
				continue
			}
			merged, err := current.Concat(next, ChunkID(s.gen.New()))
			if err != nil {
				s.invalidateLocked(all)
				s.mu.Unlock()
				return all, err
			}
			all = append(all, s.removeLocked(current.ID())...)
			all = append(all, s.removeLocked(next.ID())...)
			s.byID[merged.ID()] = merged
			s.insertTemporalLocked(merged)
			s.stats.Temporal = s.stats.Temporal.Add(StatsForChunk(merged))
			all = append(all, StoreEvent{
				Kind:    EventAddition,
				ChunkID: merged.ID(),
				Entity:  merged.Entity(),
				Chunk:   merged,
			})
			current = merged
		}
	}

	s.invalidateLocked(all)
	s.mu.Unlock()
	s.publish(all)
	return all, nil
}

func schemaSignature(c *Chunk) string {
	sig := ""
	for _, tl := range c.Timelines() {
		sig += "t:" + tl.Name() + "|"
	}
	for _, name := range c.Components() {
		sig += "c:" + string(name) + "|"
	}
	return sig
}
