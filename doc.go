// Package strata provides the chunk store at the heart of a multimodal
// logging and visualization engine.
//
// Strata ingests immutable columnar batches of rows ("chunks") tagged with
// hierarchical entity paths and zero or more logical timelines, and serves
// point-in-time ("latest-at") and interval ("range") queries over them with
// deterministic tie-break semantics.
//
// # Basic Usage
//
// Create a store and insert a chunk:
//
//	store := strata.NewStore(strata.DefaultConfig())
//	gen := strata.NewGenerator()
//	frame := strata.NewTimeline("frame", strata.TimelineSequence)
//
//	builder := strata.NewChunkBuilder(strata.ChunkID(gen.New()), strata.NewEntityPath("robot/cam"))
//	builder.AddRow(strata.RowID(gen.New()),
//	    strata.TimePoint{frame: 10},
//	    map[strata.ComponentName]*strata.Value{
//	        "Position": strata.NewFloat64Value(1, 2, 3),
//	    })
//	chunk, err := builder.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store.Insert(chunk)
//
// Query the latest state at a point in time:
//
//	result := store.LatestAt(strata.LatestAtQuery{
//	    Entity:     strata.NewEntityPath("robot/cam"),
//	    Timeline:   frame,
//	    At:         10,
//	    Components: []strata.ComponentName{"Position"},
//	})
//
// Or stream a joined range:
//
//	res := store.Range(strata.RangeQuery{
//	    Entity:     strata.NewEntityPath("robot/cam"),
//	    Timeline:   frame,
//	    Range:      strata.NewTimeRange(0, 100),
//	    Components: []strata.ComponentName{"Position", "Color"},
//	})
//	it := res.Iter()
//	for {
//	    row, ok := it.Next()
//	    if !ok {
//	        break
//	    }
//	    _ = row
//	}
//
// # Features
//
// Core Storage:
//   - Immutable columnar chunks keyed by 128-bit time-ordered identifiers
//   - Per-entity, per-timeline, per-component temporal index
//   - Static (timeless) component table with last-value-wins semantics
//   - Lazy merge-sort for chunks logged out of time order
//   - Snappy compression for opaque blob payloads
//
// Query & Lifecycle:
//   - Latest-at resolution with static-over-temporal precedence
//   - Range queries as an N-way stream join with primary-last tie-breaking
//   - Garbage collection ordered by minimum contained row id
//   - Incremental, mergeable size/shape statistics
//   - LRU latest-at cache with event-driven invalidation
//   - WebSocket streaming of store change events
//
// # Configuration
//
// Use [Config] to customize behavior:
//
//	cfg := strata.Config{
//	    GC: strata.GCConfig{
//	        MaxBytes: 512 * 1024 * 1024,
//	    },
//	    Cache: strata.CacheConfig{
//	        Enabled:    true,
//	        MaxEntries: 4096,
//	    },
//	}
//
// Or use [DefaultConfig] for sensible defaults.
package strata
