package strata

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// TUID is a 128-bit time-ordered unique identifier. The high 64 bits hold
// wall-clock nanoseconds at creation and the low 64 bits hold a process-local
// monotonic counter, so freshly generated ids sort by creation order even
// when the clock stutters. The total order is the raw 128-bit value.
type TUID struct {
	// TimeNs is Unix wall-clock time in nanoseconds.
	TimeNs uint64
	// Inc is the process-local monotonic counter.
	Inc uint64
}

var (
	// TUIDZero sorts before every generated id.
	TUIDZero = TUID{}

	// TUIDMax sorts after every generated id.
	TUIDMax = TUID{TimeNs: math.MaxUint64, Inc: math.MaxUint64}
)

// IsZero reports whether the id is the zero id.
func (t TUID) IsZero() bool {
	return t == TUIDZero
}

// Compare returns -1, 0, or 1 comparing the raw 128-bit values.
func (t TUID) Compare(other TUID) int {
	if t.TimeNs != other.TimeNs {
		if t.TimeNs < other.TimeNs {
			return -1
		}
		return 1
	}
	if t.Inc != other.Inc {
		if t.Inc < other.Inc {
			return -1
		}
		return 1
	}
	return 0
}

// Less reports whether t sorts before other.
func (t TUID) Less(other TUID) bool {
	return t.Compare(other) < 0
}

// Next returns the immediate successor of t.
func (t TUID) Next() TUID {
	return t.IncrementedBy(1)
}

// IncrementedBy returns the id n steps after t, carrying into the time word
// when the counter wraps. Successors are deterministic and need no timer,
// which makes them suitable for synthetic test sequences.
func (t TUID) IncrementedBy(n uint64) TUID {
	inc := t.Inc + n
	if inc < t.Inc {
		return TUID{TimeNs: t.TimeNs + 1, Inc: inc}
	}
	return TUID{TimeNs: t.TimeNs, Inc: inc}
}

// Time returns the wall-clock component of the id.
func (t TUID) Time() time.Time {
	return time.Unix(0, int64(t.TimeNs))
}

// String returns a fixed-width hexadecimal representation that sorts
// lexicographically in id order.
func (t TUID) String() string {
	return fmt.Sprintf("%016x-%016x", t.TimeNs, t.Inc)
}

// Generator produces strictly increasing TUIDs. The counter is monotonic for
// the life of the generator, so ids remain ordered even when the wall clock
// stalls or steps backwards. Generators are explicitly owned rather than
// process-global so tests can substitute deterministic sequences built from
// [TUID.Next] and [TUID.IncrementedBy].
type Generator struct {
	mu     sync.Mutex
	lastNs uint64
	inc    uint64
}

// NewGenerator creates a generator seeded from the wall clock.
func NewGenerator() *Generator {
	return &Generator{}
}

// New produces a fresh id. Ids from one generator are strictly increasing.
func (g *Generator) New() TUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := uint64(time.Now().UnixNano())
	if now <= g.lastNs {
		// Clock stalled or stepped backwards; keep the previous timestamp
		// and let the counter carry the ordering.
		now = g.lastNs
	} else {
		g.lastNs = now
	}
	g.inc++
	return TUID{TimeNs: now, Inc: g.inc}
}

// RowID identifies one logged row. Row ids approximate logging chronology
// and are the authoritative tie-breaker for queries.
type RowID TUID

// Compare returns -1, 0, or 1 comparing the raw 128-bit values.
func (r RowID) Compare(other RowID) int {
	return TUID(r).Compare(TUID(other))
}

// Less reports whether r sorts before other.
func (r RowID) Less(other RowID) bool {
	return r.Compare(other) < 0
}

// IsZero reports whether the id is the zero id.
func (r RowID) IsZero() bool {
	return TUID(r).IsZero()
}

func (r RowID) String() string {
	return TUID(r).String()
}

// ChunkID identifies one chunk. Duplicate chunk ids collapse to a single
// surviving chunk in the store.
type ChunkID TUID

// Compare returns -1, 0, or 1 comparing the raw 128-bit values.
func (c ChunkID) Compare(other ChunkID) int {
	return TUID(c).Compare(TUID(other))
}

// IsZero reports whether the id is the zero id.
func (c ChunkID) IsZero() bool {
	return TUID(c).IsZero()
}

func (c ChunkID) String() string {
	return TUID(c).String()
}
