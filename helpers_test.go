package strata

import "testing"

// Shared fixtures for store and query tests.

var (
	tlFrame = NewTimeline("frame", TimelineSequence)
	tlLog   = NewTimeline("log_time", TimelineDuration)
)

// rid builds a deterministic row id ordered by n.
func rid(n uint64) RowID {
	return RowID(TUID{Inc: n})
}

// cid builds a deterministic chunk id ordered by n.
func cid(n uint64) ChunkID {
	return ChunkID(TUID{Inc: n})
}

func f64(vs ...float64) *Value {
	return NewFloat64Value(vs...)
}

func i64(vs ...int64) *Value {
	return NewInt64Value(vs...)
}

func mustBuild(t *testing.T, b *ChunkBuilder) *Chunk {
	t.Helper()
	chunk, err := b.Build()
	if err != nil {
		t.Fatalf("build chunk: %v", err)
	}
	return chunk
}

func mustInsert(t *testing.T, s *Store, chunk *Chunk) {
	t.Helper()
	if _, err := s.Insert(chunk); err != nil {
		t.Fatalf("insert chunk %s: %v", chunk.ID(), err)
	}
}

// tempChunk builds a single-component temporal chunk on tlFrame with one
// row per (rowID, time) pair.
func tempChunk(t *testing.T, id uint64, entity string, component ComponentName, rows [][2]int64) *Chunk {
	t.Helper()
	b := NewChunkBuilder(cid(id), NewEntityPath(entity))
	for _, r := range rows {
		b.AddRow(rid(uint64(r[0])), TimePoint{tlFrame: TimeInt(r[1])},
			map[ComponentName]*Value{component: f64(float64(r[0]))})
	}
	return mustBuild(t, b)
}

// staticChunk builds a single-row static chunk.
func staticChunk(t *testing.T, id uint64, entity string, component ComponentName, v *Value) *Chunk {
	t.Helper()
	b := NewChunkBuilder(cid(id), NewEntityPath(entity))
	b.AddRow(rid(id), TimePoint{}, map[ComponentName]*Value{component: v})
	return mustBuild(t, b)
}
