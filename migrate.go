package strata

// Migration re-encodes chunks produced by older schema versions: renamed
// component kinds (legacy archetype-qualified names) and legacy identifier
// layouts. It is a pure function applied to inbound chunks strictly before
// they reach Insert; inputs are never mutated.
type Migration struct {
	// RenameComponents maps legacy component names to their current names.
	// Unlisted names pass through unchanged.
	RenameComponents map[ComponentName]ComponentName

	// RekeyRowID re-encodes a legacy row id layout. Nil means identity.
	RekeyRowID func(RowID) RowID

	// RekeyChunkID re-encodes a legacy chunk id layout. Nil means identity.
	RekeyChunkID func(ChunkID) ChunkID
}

// IsZero reports whether the migration would change nothing.
func (m Migration) IsZero() bool {
	return len(m.RenameComponents) == 0 && m.RekeyRowID == nil && m.RekeyChunkID == nil
}

// rename returns the current name for a possibly-legacy component name.
func (m Migration) rename(name ComponentName) ComponentName {
	if current, ok := m.RenameComponents[name]; ok {
		return current
	}
	return name
}

// Apply returns a migrated copy of the chunk, or the chunk itself when the
// migration is a no-op for it. Column cells are shared, never copied:
// chunks are immutable.
func (m Migration) Apply(c *Chunk) (*Chunk, error) {
	if m.IsZero() {
		return c, nil
	}

	id := c.ID()
	if m.RekeyChunkID != nil {
		id = m.RekeyChunkID(id)
	}

	rowIDs := c.rowIDs
	if m.RekeyRowID != nil {
		rowIDs = make([]RowID, len(c.rowIDs))
		for i, r := range c.rowIDs {
			rowIDs[i] = m.RekeyRowID(r)
		}
	}

	renamed := false
	columns := make([]ComponentColumn, 0, len(c.componentNames))
	for _, name := range c.componentNames {
		col := c.columns[name]
		current := m.rename(name)
		if current != name {
			renamed = true
			col = NewComponentColumn(current, col.cells)
		}
		columns = append(columns, col)
	}

	if !renamed && m.RekeyRowID == nil && id == c.ID() {
		return c, nil
	}

	times := make(map[Timeline][]TimeInt, len(c.timeColumns))
	for tl, tc := range c.timeColumns {
		times[tl] = tc.times
	}

	return NewChunk(id, c.entity, rowIDs, times, columns)
}

// ApplyAll migrates a batch, failing on the first malformed result (two
// legacy names mapped to one current name collide as duplicate columns).
func (m Migration) ApplyAll(chunks []*Chunk) ([]*Chunk, error) {
	if m.IsZero() {
		return chunks, nil
	}
	out := make([]*Chunk, 0, len(chunks))
	for _, c := range chunks {
		migrated, err := m.Apply(c)
		if err != nil {
			return nil, err
		}
		out = append(out, migrated)
	}
	return out, nil
}
