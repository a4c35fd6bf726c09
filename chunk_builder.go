package strata

import "sort"

// ChunkBuilder assembles a chunk row by row, the shape upstream producers
// deliver data in: one RowID, one TimePoint, and a component-name to value
// mapping per logging call. Rows may be added in any order; the finished
// chunk records per-timeline sortedness and is merge-sorted lazily at query
// time when needed.
type ChunkBuilder struct {
	id     ChunkID
	entity EntityPath

	rowIDs []RowID
	times  map[Timeline][]TimeInt
	cells  map[ComponentName][]*Value

	buildErr error
}

// NewChunkBuilder creates a builder for one entity's chunk.
func NewChunkBuilder(id ChunkID, entity EntityPath) *ChunkBuilder {
	return &ChunkBuilder{
		id:     id,
		entity: entity,
		times:  make(map[Timeline][]TimeInt),
		cells:  make(map[ComponentName][]*Value),
	}
}

// AddRow appends one logged row. The first row fixes the chunk's timeline
// set; later rows must carry coordinates on exactly those timelines, since
// a chunk is either purely static or purely temporal and every temporal row
// needs a coordinate on each chunk timeline. Violations surface from
// [ChunkBuilder.Build].
func (b *ChunkBuilder) AddRow(rowID RowID, tp TimePoint, values map[ComponentName]*Value) *ChunkBuilder {
	row := len(b.rowIDs)
	b.rowIDs = append(b.rowIDs, rowID)

	if row == 0 {
		for tl, t := range tp {
			b.times[tl] = []TimeInt{t}
		}
	} else {
		if len(tp) != len(b.times) && b.buildErr == nil {
			b.buildErr = newMalformedChunkError(MalformedMixedStaticTemporal, b.id,
				"row %d has %d timeline coordinates, chunk has %d timelines", row, len(tp), len(b.times))
		}
		for tl := range b.times {
			t, ok := tp[tl]
			if !ok {
				if b.buildErr == nil {
					b.buildErr = newMalformedChunkError(MalformedMixedStaticTemporal, b.id,
						"row %d is missing a coordinate on timeline %q", row, tl.Name())
				}
				t = 0
			}
			b.times[tl] = append(b.times[tl], t)
		}
	}

	for name, v := range values {
		col := b.cells[name]
		for len(col) < row {
			col = append(col, nil)
		}
		b.cells[name] = append(col, v)
	}

	return b
}

// NumRows returns the number of rows added so far.
func (b *ChunkBuilder) NumRows() int {
	return len(b.rowIDs)
}

// Build validates and assembles the chunk. Component columns are padded
// with nulls for rows that did not log them.
func (b *ChunkBuilder) Build() (*Chunk, error) {
	if b.buildErr != nil {
		return nil, b.buildErr
	}

	numRows := len(b.rowIDs)
	names := make([]ComponentName, 0, len(b.cells))
	for name := range b.cells {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	columns := make([]ComponentColumn, 0, len(names))
	for _, name := range names {
		col := b.cells[name]
		for len(col) < numRows {
			col = append(col, nil)
		}
		columns = append(columns, NewComponentColumn(name, col))
	}

	return NewChunk(b.id, b.entity, b.rowIDs, b.times, columns)
}
