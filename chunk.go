package strata

import (
	"sort"
	"sync"
)

// rowIDOverhead is the stored size of one RowID (two 64-bit words).
const rowIDOverhead = 16

// timeOverhead is the stored size of one time coordinate.
const timeOverhead = 8

type timeColumn struct {
	times []TimeInt
	// sorted means rows are non-decreasing by (time, RowID) on this
	// timeline in physical order.
	sorted bool
}

// Chunk is an immutable columnar batch of rows for one entity: a RowID
// column, per-timeline time columns (temporal chunks only), and one or more
// nullable component columns, all sharing the chunk's row count.
//
// A chunk is either purely static or purely temporal. Chunks never mutate
// after construction; compaction and migration build new chunks and swap
// them into the store.
type Chunk struct {
	id     ChunkID
	entity EntityPath

	rowIDs      []RowID
	timeColumns map[Timeline]*timeColumn
	columns     map[ComponentName]ComponentColumn

	// precomputed at construction
	componentNames []ComponentName
	timelines      []Timeline
	minRowID       RowID
	sizeBytes      int64

	// sortMu guards the lazily built per-timeline row permutations for
	// unsorted chunks. Logical content stays immutable.
	sortMu    sync.Mutex
	sortCache map[Timeline][]int
}

// NewChunk builds and validates a chunk. times must be empty for a static
// chunk; every present time column and component column must match
// len(rowIDs). Violations yield a MalformedChunkError and no chunk.
func NewChunk(id ChunkID, entity EntityPath, rowIDs []RowID, times map[Timeline][]TimeInt, columns []ComponentColumn) (*Chunk, error) {
	numRows := len(rowIDs)
	if numRows == 0 {
		return nil, newMalformedChunkError(MalformedNoRows, id, "chunk has no rows")
	}
	if len(columns) == 0 {
		return nil, newMalformedChunkError(MalformedNoComponents, id, "chunk has no component columns")
	}

	c := &Chunk{
		id:          id,
		entity:      entity,
		rowIDs:      rowIDs,
		timeColumns: make(map[Timeline]*timeColumn, len(times)),
		columns:     make(map[ComponentName]ComponentColumn, len(columns)),
	}

	for tl, ts := range times {
		if len(ts) != numRows {
			return nil, newMalformedChunkError(MalformedLengthMismatch, id,
				"timeline %q has %d coordinates for %d rows", tl.Name(), len(ts), numRows)
		}
		col := &timeColumn{times: ts, sorted: true}
		for i := 1; i < numRows; i++ {
			if ts[i] < ts[i-1] || (ts[i] == ts[i-1] && rowIDs[i].Less(rowIDs[i-1])) {
				col.sorted = false
				break
			}
		}
		c.timeColumns[tl] = col
		c.timelines = append(c.timelines, tl)
	}
	sort.Slice(c.timelines, func(i, j int) bool {
		return c.timelines[i].Name() < c.timelines[j].Name()
	})

	for _, col := range columns {
		if col.Len() != numRows {
			return nil, newMalformedChunkError(MalformedLengthMismatch, id,
				"component %q has %d cells for %d rows", col.Name(), col.Len(), numRows)
		}
		if _, dup := c.columns[col.Name()]; dup {
			return nil, newMalformedChunkError(MalformedLengthMismatch, id,
				"duplicate component column %q", col.Name())
		}
		c.columns[col.Name()] = col
		c.componentNames = append(c.componentNames, col.Name())
		c.sizeBytes += col.SizeBytes()
	}
	sort.Slice(c.componentNames, func(i, j int) bool {
		return c.componentNames[i] < c.componentNames[j]
	})

	c.sizeBytes += int64(numRows) * rowIDOverhead
	c.sizeBytes += int64(len(c.timeColumns)) * int64(numRows) * timeOverhead

	c.minRowID = rowIDs[0]
	for _, r := range rowIDs[1:] {
		if r.Less(c.minRowID) {
			c.minRowID = r
		}
	}

	return c, nil
}

// ID returns the chunk id.
func (c *Chunk) ID() ChunkID {
	return c.id
}

// Entity returns the entity path all rows belong to.
func (c *Chunk) Entity() EntityPath {
	return c.entity
}

// NumRows returns the shared row count.
func (c *Chunk) NumRows() int {
	return len(c.rowIDs)
}

// NumComponents returns the number of component columns.
func (c *Chunk) NumComponents() int {
	return len(c.columns)
}

// NumTimelines returns the number of time columns (zero for static chunks).
func (c *Chunk) NumTimelines() int {
	return len(c.timeColumns)
}

// IsStatic reports whether the chunk carries no timeline coordinates.
func (c *Chunk) IsStatic() bool {
	return len(c.timeColumns) == 0
}

// Timelines returns the chunk's timelines in name order.
func (c *Chunk) Timelines() []Timeline {
	return c.timelines
}

// Components returns the component names in sorted order.
func (c *Chunk) Components() []ComponentName {
	return c.componentNames
}

// HasComponent reports whether the chunk carries the component.
func (c *Chunk) HasComponent(name ComponentName) bool {
	_, ok := c.columns[name]
	return ok
}

// Column returns the component column by name.
func (c *Chunk) Column(name ComponentName) (ComponentColumn, bool) {
	col, ok := c.columns[name]
	return col, ok
}

// Cell returns the component value at row i, nil if null or absent.
func (c *Chunk) Cell(name ComponentName, i int) *Value {
	col, ok := c.columns[name]
	if !ok {
		return nil
	}
	return col.Cell(i)
}

// RowIDAt returns the row id at physical row i.
func (c *Chunk) RowIDAt(i int) RowID {
	return c.rowIDs[i]
}

// MinRowID returns the smallest row id in the chunk, the garbage
// collector's proxy for the age of the chunk's oldest data.
func (c *Chunk) MinRowID() RowID {
	return c.minRowID
}

// SizeBytes returns the precomputed stored size of the chunk.
func (c *Chunk) SizeBytes() int64 {
	return c.sizeBytes
}

// Times returns the time coordinates on the given timeline.
func (c *Chunk) Times(tl Timeline) ([]TimeInt, bool) {
	col, ok := c.timeColumns[tl]
	if !ok {
		return nil, false
	}
	return col.times, true
}

// TimeAt returns the coordinate of row i on the given timeline.
func (c *Chunk) TimeAt(tl Timeline, i int) (TimeInt, bool) {
	col, ok := c.timeColumns[tl]
	if !ok {
		return 0, false
	}
	return col.times[i], true
}

// TimeRangeOn returns the [min, max] coordinate range on a timeline.
func (c *Chunk) TimeRangeOn(tl Timeline) (TimeRange, bool) {
	col, ok := c.timeColumns[tl]
	if !ok {
		return TimeRange{}, false
	}
	r := TimeRange{Min: col.times[0], Max: col.times[0]}
	if col.sorted {
		r.Max = col.times[len(col.times)-1]
		return r, true
	}
	for _, t := range col.times[1:] {
		if t < r.Min {
			r.Min = t
		}
		if t > r.Max {
			r.Max = t
		}
	}
	return r, true
}

// IsSortedOn reports whether physical row order is non-decreasing by
// (time, RowID) on the given timeline. Unsorted chunks are merge-sorted
// lazily at query time.
func (c *Chunk) IsSortedOn(tl Timeline) bool {
	col, ok := c.timeColumns[tl]
	return ok && col.sorted
}

// rowOrderOn returns physical row indices in (time, RowID) order for the
// timeline. Sorted chunks return nil, meaning identity order. The
// permutation for unsorted chunks is computed once and cached.
func (c *Chunk) rowOrderOn(tl Timeline) []int {
	col, ok := c.timeColumns[tl]
	if !ok || col.sorted {
		return nil
	}

	c.sortMu.Lock()
	defer c.sortMu.Unlock()
	if perm, ok := c.sortCache[tl]; ok {
		return perm
	}

	perm := make([]int, len(col.times))
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		ta, tb := col.times[perm[a]], col.times[perm[b]]
		if ta != tb {
			return ta < tb
		}
		return c.rowIDs[perm[a]].Less(c.rowIDs[perm[b]])
	})

	if c.sortCache == nil {
		c.sortCache = make(map[Timeline][]int)
	}
	c.sortCache[tl] = perm
	return perm
}

// sameSchema reports whether two chunks share entity, timeline set, and
// component set, the precondition for Concat.
func sameSchema(a, b *Chunk) bool {
	if a.entity != b.entity || len(a.timeColumns) != len(b.timeColumns) || len(a.columns) != len(b.columns) {
		return false
	}
	for tl := range a.timeColumns {
		if _, ok := b.timeColumns[tl]; !ok {
			return false
		}
	}
	for name := range a.columns {
		if _, ok := b.columns[name]; !ok {
			return false
		}
	}
	return true
}

// Concat builds a new chunk holding c's rows followed by other's rows under
// the given id. Both chunks must share entity, timelines, and components.
// The inputs are not mutated. If the combined row order is not
// (time, RowID)-sorted on some timeline, the result is flagged unsorted and
// merge-sorted lazily at query time.
func (c *Chunk) Concat(other *Chunk, id ChunkID) (*Chunk, error) {
	if !sameSchema(c, other) {
		return nil, newMalformedChunkError(MalformedUnknown, id,
			"cannot concat chunks with differing schemas (%s, %s)", c.id, other.id)
	}

	rowIDs := make([]RowID, 0, len(c.rowIDs)+len(other.rowIDs))
	rowIDs = append(rowIDs, c.rowIDs...)
	rowIDs = append(rowIDs, other.rowIDs...)

	times := make(map[Timeline][]TimeInt, len(c.timeColumns))
	for tl, col := range c.timeColumns {
		merged := make([]TimeInt, 0, len(rowIDs))
		merged = append(merged, col.times...)
		merged = append(merged, other.timeColumns[tl].times...)
		times[tl] = merged
	}

	columns := make([]ComponentColumn, 0, len(c.componentNames))
	for _, name := range c.componentNames {
		col, err := c.columns[name].Concat(other.columns[name])
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return NewChunk(id, c.entity, rowIDs, times, columns)
}
