package strata

// RangeQuery asks for an ordered, joined stream of component values over an
// inclusive time interval on one timeline.
type RangeQuery struct {
	Entity     EntityPath
	Timeline   Timeline
	Range      TimeRange
	Components []ComponentName
	// Primary designates the component whose rows drive emission. It
	// defaults to the first requested component.
	Primary ComponentName
}

func (q RangeQuery) primary() ComponentName {
	if q.Primary != "" {
		for _, name := range q.Components {
			if name == q.Primary {
				return q.Primary
			}
		}
	}
	if len(q.Components) == 0 {
		return ""
	}
	return q.Components[0]
}

// RangeRow is one joined output row: the primary cursor's (time, RowID) key
// plus the latest-known value of every requested component at that key.
type RangeRow struct {
	Time   TimeInt
	RowID  RowID
	Values map[ComponentName]*Value
}

// Value returns the component's value in this row, nil if unknown.
func (r RangeRow) Value(name ComponentName) *Value {
	return r.Values[name]
}

// RangeResult is the materialized output of a range query: a pure function
// of store state at call time. Iterators over one result are independent
// and restartable, and always yield the identical sequence.
type RangeResult struct {
	Entity   EntityPath
	Timeline Timeline
	Range    TimeRange

	rows []RangeRow
}

// Len returns the number of joined rows.
func (r *RangeResult) Len() int {
	return len(r.rows)
}

// Row returns the i-th joined row.
func (r *RangeResult) Row(i int) RangeRow {
	return r.rows[i]
}

// Iter returns a fresh iterator positioned before the first row.
func (r *RangeResult) Iter() *RangeIterator {
	return &RangeIterator{rows: r.rows}
}

// RangeIterator walks a RangeResult front to back.
type RangeIterator struct {
	rows []RangeRow
	pos  int
}

// Next returns the next joined row, or ok=false when exhausted.
func (it *RangeIterator) Next() (RangeRow, bool) {
	if it.pos >= len(it.rows) {
		return RangeRow{}, false
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true
}

// rangeEntry is one (time, RowID, value) triple on a component cursor.
type rangeEntry struct {
	t     TimeInt
	rowID RowID
	value *Value
}

func entryKeyLess(at TimeInt, ar RowID, bt TimeInt, br RowID) bool {
	if at != bt {
		return at < bt
	}
	return ar.Less(br)
}

// Range executes an N-way merge join across one time-ordered cursor per
// requested component. The primary cursor drives emission; each output row
// corresponds to one of its (time, RowID) keys. Secondary cursors advance
// up to and including that key before the row is emitted, so a component
// logged at the exact same (time, RowID) as the primary — siblings from one
// logging call — lands in the same joined row instead of being dropped.
// Static components contribute their value to every row.
func (s *Store) Range(q RangeQuery) *RangeResult {
	result := &RangeResult{Entity: q.Entity, Timeline: q.Timeline, Range: q.Range}
	primaryName := q.primary()
	if primaryName == "" || q.Range.IsEmpty() {
		return result
	}

	staticValues := make(map[ComponentName]*Value)
	staticRows := make(map[ComponentName]RowID)
	cursors := make(map[ComponentName][]rangeEntry)
	for _, name := range q.Components {
		if chunk := s.StaticChunk(q.Entity, name); chunk != nil {
			if entry, ok := latestStaticEntry(chunk, name); ok {
				staticValues[name] = entry.Value
				staticRows[name] = entry.RowID
				continue
			}
		}
		cursors[name] = s.componentEntries(q.Entity, q.Timeline, name, q.Range)
	}

	// A static primary has no temporal keys to drive with: emit a single
	// row at the range start carrying the static state.
	if sv, ok := staticValues[primaryName]; ok {
		row := RangeRow{Time: q.Range.Min, RowID: staticRows[primaryName], Values: map[ComponentName]*Value{primaryName: sv}}
		for name, v := range staticValues {
			row.Values[name] = v
		}
		result.rows = append(result.rows, row)
		return result
	}

	primary := cursors[primaryName]
	if len(primary) == 0 {
		return result
	}

	type secondary struct {
		name    ComponentName
		entries []rangeEntry
		pos     int
		last    *rangeEntry
	}
	secondaries := make([]*secondary, 0, len(q.Components))
	for _, name := range q.Components {
		if name == primaryName {
			continue
		}
		if _, isStatic := staticValues[name]; isStatic {
			continue
		}
		secondaries = append(secondaries, &secondary{name: name, entries: cursors[name]})
	}

	result.rows = make([]RangeRow, 0, len(primary))
	for i := range primary {
		p := &primary[i]

		// Among cursors tied on one key the primary is consumed last:
		// fold secondary state at <= key in before emitting.
		for _, sec := range secondaries {
			for sec.pos < len(sec.entries) &&
				!entryKeyLess(p.t, p.rowID, sec.entries[sec.pos].t, sec.entries[sec.pos].rowID) {
				sec.last = &sec.entries[sec.pos]
				sec.pos++
			}
		}

		row := RangeRow{
			Time:   p.t,
			RowID:  p.rowID,
			Values: make(map[ComponentName]*Value, len(q.Components)),
		}
		row.Values[primaryName] = p.value
		for _, sec := range secondaries {
			if sec.last != nil {
				row.Values[sec.name] = sec.last.value
			}
		}
		for name, v := range staticValues {
			row.Values[name] = v
		}
		result.rows = append(result.rows, row)
	}
	return result
}

// componentEntries builds the time-ordered cursor for one component:
// per-chunk sorted runs restricted to the range and to rows that logged the
// component, merge-sorted into a single sequence when chunks overlap (the
// slow path). Exact duplicate keys collapse to the last-merged entry.
func (s *Store) componentEntries(entity EntityPath, tl Timeline, name ComponentName, r TimeRange) []rangeEntry {
	chunks := s.ChunksOverlapping(entity, tl, name, r)
	if len(chunks) == 0 {
		return nil
	}

	runs := make([][]rangeEntry, 0, len(chunks))
	for _, chunk := range chunks {
		if run := chunkEntries(chunk, tl, name, r); len(run) > 0 {
			runs = append(runs, run)
		}
	}
	if len(runs) == 0 {
		return nil
	}

	merged := runs[0]
	for _, run := range runs[1:] {
		merged = mergeEntryRuns(merged, run)
	}
	return merged
}

// chunkEntries extracts one chunk's sorted run. Unsorted chunks go through
// the lazily cached (time, RowID) permutation. Duplicate keys within a
// chunk keep the later row.
func chunkEntries(chunk *Chunk, tl Timeline, name ComponentName, r TimeRange) []rangeEntry {
	times, ok := chunk.Times(tl)
	if !ok {
		return nil
	}
	perm := chunk.rowOrderOn(tl)

	out := make([]rangeEntry, 0, chunk.NumRows())
	for i := 0; i < chunk.NumRows(); i++ {
		row := i
		if perm != nil {
			row = perm[i]
		}
		t := times[row]
		if !r.Contains(t) {
			continue
		}
		v := chunk.Cell(name, row)
		if v == nil {
			continue
		}
		id := chunk.RowIDAt(row)
		if n := len(out); n > 0 && out[n-1].t == t && out[n-1].rowID == id {
			out[n-1].value = v
			continue
		}
		out = append(out, rangeEntry{t: t, rowID: id, value: v})
	}
	return out
}

// mergeEntryRuns merges two sorted runs, collapsing exact key duplicates to
// the second run's entry.
func mergeEntryRuns(a, b []rangeEntry) []rangeEntry {
	out := make([]rangeEntry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case entryKeyLess(a[i].t, a[i].rowID, b[j].t, b[j].rowID):
			out = append(out, a[i])
			i++
		case entryKeyLess(b[j].t, b[j].rowID, a[i].t, a[i].rowID):
			out = append(out, b[j])
			j++
		default:
			out = append(out, b[j])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
