package strata

import (
	"fmt"
	"math"
	"time"
)

// TimelineType distinguishes the two kinds of time axes.
type TimelineType int

const (
	// TimelineSequence is a discrete counter (frame number, log tick).
	TimelineSequence TimelineType = iota
	// TimelineDuration is continuous time in nanoseconds.
	TimelineDuration
)

func (t TimelineType) String() string {
	switch t {
	case TimelineSequence:
		return "sequence"
	case TimelineDuration:
		return "duration"
	default:
		return "unknown"
	}
}

// Timeline is a named, user-defined time axis. Timelines are compared by
// name and type and are usable as map keys.
type Timeline struct {
	name string
	typ  TimelineType
}

// NewTimeline creates a timeline with the given name and type.
func NewTimeline(name string, typ TimelineType) Timeline {
	return Timeline{name: name, typ: typ}
}

// Name returns the timeline name.
func (t Timeline) Name() string {
	return t.name
}

// Type returns the timeline type.
func (t Timeline) Type() TimelineType {
	return t.typ
}

func (t Timeline) String() string {
	return t.name
}

// TimeInt is an integer coordinate on a timeline: a sequence number for
// discrete timelines, nanoseconds for continuous ones.
type TimeInt int64

const (
	// TimeMin sorts before every reachable coordinate.
	TimeMin TimeInt = math.MinInt64
	// TimeMax sorts after every reachable coordinate.
	TimeMax TimeInt = math.MaxInt64
)

// Duration interprets the coordinate as nanoseconds.
func (t TimeInt) Duration() time.Duration {
	return time.Duration(t)
}

func (t TimeInt) String() string {
	return fmt.Sprintf("%d", int64(t))
}

// TimeRange is an inclusive [Min, Max] interval on one timeline.
type TimeRange struct {
	Min TimeInt
	Max TimeInt
}

// NewTimeRange creates an inclusive time range.
func NewTimeRange(min, max TimeInt) TimeRange {
	return TimeRange{Min: min, Max: max}
}

// RangeEverything covers every representable coordinate.
var RangeEverything = TimeRange{Min: TimeMin, Max: TimeMax}

// RangeUntil covers (-inf, at], the interval latest-at queries scan.
func RangeUntil(at TimeInt) TimeRange {
	return TimeRange{Min: TimeMin, Max: at}
}

// Contains reports whether the coordinate falls inside the range.
func (r TimeRange) Contains(t TimeInt) bool {
	return t >= r.Min && t <= r.Max
}

// Intersects reports whether two ranges share at least one coordinate.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// IsEmpty reports whether the range contains no coordinates.
func (r TimeRange) IsEmpty() bool {
	return r.Min > r.Max
}

// Union returns the smallest range covering both operands.
func (r TimeRange) Union(other TimeRange) TimeRange {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	out := r
	if other.Min < out.Min {
		out.Min = other.Min
	}
	if other.Max > out.Max {
		out.Max = other.Max
	}
	return out
}

// TimePoint maps zero or more timelines to a coordinate. An empty TimePoint
// denotes a static (timeless) row, valid from negative infinity until
// overwritten.
type TimePoint map[Timeline]TimeInt

// IsStatic reports whether the point carries no timeline coordinates.
func (tp TimePoint) IsStatic() bool {
	return len(tp) == 0
}

// Clone returns an independent copy of the point.
func (tp TimePoint) Clone() TimePoint {
	if tp == nil {
		return nil
	}
	out := make(TimePoint, len(tp))
	for k, v := range tp {
		out[k] = v
	}
	return out
}
