package strata

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// GCOptions selects what garbage collection should reclaim.
type GCOptions struct {
	// Everything purges every chunk, static data included.
	Everything bool

	// MaxBytes evicts oldest-first until the store's total size is at or
	// under the budget. Zero means no byte budget.
	MaxBytes int64

	// MaxRows evicts oldest-first until the store's total row count is at
	// or under the budget. Zero means no row budget.
	MaxRows int64
}

// GCReport summarizes one garbage collection pass.
type GCReport struct {
	NumEvicted   int
	BytesEvicted int64
	RowsEvicted  int64
	Events       []StoreEvent
}

// GC evicts chunks until the configured budgets are met.
//
// Eviction order is ascending minimum contained RowID: thanks to the
// chronological bias of row ids this approximates global wall-clock logging
// order even across recordings with disagreeing timeline timestamps, and it
// makes GC deterministic and replayable. Data recently logged with an old
// application-level timestamp is therefore protected — unless a caller
// deliberately supplied synthetic backdated row ids, a documented footgun.
//
// Budget-based eviction is restricted to temporal chunks. Static storage
// only grows with distinct (entity, component) pairs — each static write
// already freed its predecessor — so it is exempt; Everything purges it too.
//
// An unmeetable budget evicts all evictable chunks and returns. Never an
// error. The whole pass runs under the writer lock, so GC cannot overlap
// itself, and in-flight queries keep their snapshots alive regardless.
func (s *Store) GC(opts GCOptions) GCReport {
	s.mu.Lock()

	var report GCReport
	evict := func(id ChunkID) {
		events := s.removeLocked(id)
		for _, ev := range events {
			report.NumEvicted++
			report.BytesEvicted += ev.Chunk.SizeBytes()
			report.RowsEvicted += int64(ev.Chunk.NumRows())
		}
		report.Events = append(report.Events, events...)
	}

	if opts.Everything {
		ids := make([]ChunkID, 0, len(s.byID))
		for id := range s.byID {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
		for _, id := range ids {
			evict(id)
		}
		s.invalidateLocked(report.Events)
		s.mu.Unlock()
		s.publish(report.Events)
		return report
	}

	candidates := make([]*Chunk, 0, len(s.byID))
	for _, chunk := range s.byID {
		if !chunk.IsStatic() {
			candidates = append(candidates, chunk)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if c := ci.MinRowID().Compare(cj.MinRowID()); c != 0 {
			return c < 0
		}
		return ci.ID().Compare(cj.ID()) < 0
	})

	overBudget := func() bool {
		total := s.stats.Total()
		if opts.MaxBytes > 0 && total.SizeBytes.Total > opts.MaxBytes {
			return true
		}
		if opts.MaxRows > 0 && total.NumRows.Total > opts.MaxRows {
			return true
		}
		return false
	}

	for _, chunk := range candidates {
		if !overBudget() {
			break
		}
		evict(chunk.ID())
	}

	if overBudget() {
		slog.Debug("gc budget unmeetable, all evictable chunks removed",
			"max_bytes", opts.MaxBytes, "max_rows", opts.MaxRows,
			"remaining_bytes", s.stats.Total().SizeBytes.Total)
	}

	s.invalidateLocked(report.Events)
	s.mu.Unlock()
	s.publish(report.Events)
	return report
}

// RunGC periodically applies the configured budgets until the context is
// canceled. Passes are serialized on the store lock, so a manual GC call
// never overlaps the loop.
func (s *Store) RunGC(ctx context.Context) {
	ticker := time.NewTicker(s.config.GC.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.config.GC.MaxBytes == 0 && s.config.GC.MaxRows == 0 {
				continue
			}
			report := s.GC(GCOptions{
				MaxBytes: s.config.GC.MaxBytes,
				MaxRows:  s.config.GC.MaxRows,
			})
			if report.NumEvicted > 0 {
				slog.Debug("background gc pass",
					"evicted", report.NumEvicted, "bytes", report.BytesEvicted)
			}
		}
	}
}
