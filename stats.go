package strata

import "math"

// MinMaxTotal is an incrementally maintained aggregate of one size or shape
// dimension across a group of chunks.
//
// The empty aggregate uses sentinel bounds (Min = max int64, Max = min
// int64) so the first real value cleanly establishes both bounds.
type MinMaxTotal struct {
	Min   int64
	Max   int64
	Total int64
}

// EmptyMinMaxTotal returns the identity element for Add.
func EmptyMinMaxTotal() MinMaxTotal {
	return MinMaxTotal{Min: math.MaxInt64, Max: math.MinInt64}
}

// ForValue returns the aggregate of a single observation.
func ForValue(v int64) MinMaxTotal {
	return MinMaxTotal{Min: v, Max: v, Total: v}
}

// Add folds two aggregates. Add is commutative and associative, so chunk
// stats can be folded in any order or merged across shards.
func (m MinMaxTotal) Add(other MinMaxTotal) MinMaxTotal {
	return MinMaxTotal{
		Min:   minInt64(m.Min, other.Min),
		Max:   maxInt64(m.Max, other.Max),
		Total: m.Total + other.Total,
	}
}

// Subtract removes other's contribution. Totals subtract exactly; the
// min/max bounds are only re-widened over both operands, never restored to
// the true remaining extremum. After a removal the reported bounds may
// therefore be stale while totals stay exact, which is what budget
// decisions rely on. Repairing the bounds would need a full rescan and is
// deliberately not done.
func (m MinMaxTotal) Subtract(other MinMaxTotal) MinMaxTotal {
	return MinMaxTotal{
		Min:   minInt64(m.Min, other.Min),
		Max:   maxInt64(m.Max, other.Max),
		Total: m.Total - other.Total,
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// GroupStats aggregates size and shape over one group of chunks (the static
// group or the temporal group).
type GroupStats struct {
	NumChunks     int64
	SizeBytes     MinMaxTotal
	NumRows       MinMaxTotal
	NumComponents MinMaxTotal
	NumTimelines  MinMaxTotal
}

// EmptyGroupStats returns the identity element for Add.
func EmptyGroupStats() GroupStats {
	return GroupStats{
		SizeBytes:     EmptyMinMaxTotal(),
		NumRows:       EmptyMinMaxTotal(),
		NumComponents: EmptyMinMaxTotal(),
		NumTimelines:  EmptyMinMaxTotal(),
	}
}

// StatsForChunk returns the single-chunk aggregate added to the running
// stats on Insert and subtracted on Remove. O(1) against precomputed chunk
// properties, no column rescan.
func StatsForChunk(c *Chunk) GroupStats {
	return GroupStats{
		NumChunks:     1,
		SizeBytes:     ForValue(c.SizeBytes()),
		NumRows:       ForValue(int64(c.NumRows())),
		NumComponents: ForValue(int64(c.NumComponents())),
		NumTimelines:  ForValue(int64(c.NumTimelines())),
	}
}

// Add folds two group aggregates elementwise.
func (g GroupStats) Add(other GroupStats) GroupStats {
	return GroupStats{
		NumChunks:     g.NumChunks + other.NumChunks,
		SizeBytes:     g.SizeBytes.Add(other.SizeBytes),
		NumRows:       g.NumRows.Add(other.NumRows),
		NumComponents: g.NumComponents.Add(other.NumComponents),
		NumTimelines:  g.NumTimelines.Add(other.NumTimelines),
	}
}

// Subtract removes other's contribution, with the documented min/max drift.
// A group that drops to zero chunks resets to the empty aggregate so it is
// again an identity for Add.
func (g GroupStats) Subtract(other GroupStats) GroupStats {
	out := GroupStats{
		NumChunks:     g.NumChunks - other.NumChunks,
		SizeBytes:     g.SizeBytes.Subtract(other.SizeBytes),
		NumRows:       g.NumRows.Subtract(other.NumRows),
		NumComponents: g.NumComponents.Subtract(other.NumComponents),
		NumTimelines:  g.NumTimelines.Subtract(other.NumTimelines),
	}
	if out.NumChunks <= 0 {
		return EmptyGroupStats()
	}
	return out
}

// StoreStats aggregates the static and temporal groups.
type StoreStats struct {
	Static   GroupStats
	Temporal GroupStats
}

// EmptyStoreStats returns stats with both groups empty.
func EmptyStoreStats() StoreStats {
	return StoreStats{Static: EmptyGroupStats(), Temporal: EmptyGroupStats()}
}

// Total returns the grand total across both groups. It is recomputed on
// every call, never cached.
func (s StoreStats) Total() GroupStats {
	return s.Static.Add(s.Temporal)
}
