package strata

import "testing"

func TestTimeline_Identity(t *testing.T) {
	a := NewTimeline("frame", TimelineSequence)
	b := NewTimeline("frame", TimelineSequence)
	c := NewTimeline("frame", TimelineDuration)

	if a != b {
		t.Error("timelines with same name and type should be equal")
	}
	if a == c {
		t.Error("timelines with different types should not be equal")
	}
	if a.Name() != "frame" || a.Type() != TimelineSequence {
		t.Errorf("unexpected accessors: %q %v", a.Name(), a.Type())
	}
}

func TestTimelineType_String(t *testing.T) {
	if got := TimelineSequence.String(); got != "sequence" {
		t.Errorf("got %q, want %q", got, "sequence")
	}
	if got := TimelineDuration.String(); got != "duration" {
		t.Errorf("got %q, want %q", got, "duration")
	}
	if got := TimelineType(42).String(); got != "unknown" {
		t.Errorf("got %q, want %q", got, "unknown")
	}
}

func TestTimeRange_Contains(t *testing.T) {
	r := NewTimeRange(10, 20)

	for _, at := range []TimeInt{10, 15, 20} {
		if !r.Contains(at) {
			t.Errorf("range should contain %d", at)
		}
	}
	for _, at := range []TimeInt{9, 21} {
		if r.Contains(at) {
			t.Errorf("range should not contain %d", at)
		}
	}

	if !RangeEverything.Contains(TimeMin) || !RangeEverything.Contains(TimeMax) {
		t.Error("RangeEverything should contain the extremes")
	}
	if !RangeUntil(5).Contains(TimeMin) || RangeUntil(5).Contains(6) {
		t.Error("RangeUntil should cover (-inf, at]")
	}
}

func TestTimeRange_Intersects(t *testing.T) {
	a := NewTimeRange(0, 10)

	tests := []struct {
		other TimeRange
		want  bool
	}{
		{NewTimeRange(5, 15), true},
		{NewTimeRange(10, 20), true}, // single shared coordinate
		{NewTimeRange(11, 20), false},
		{NewTimeRange(-5, -1), false},
		{NewTimeRange(-5, 0), true},
	}
	for _, tt := range tests {
		if got := a.Intersects(tt.other); got != tt.want {
			t.Errorf("Intersects(%v) = %v, want %v", tt.other, got, tt.want)
		}
		if got := tt.other.Intersects(a); got != tt.want {
			t.Errorf("Intersects should be symmetric for %v", tt.other)
		}
	}
}

func TestTimeRange_Union(t *testing.T) {
	a := NewTimeRange(0, 5)
	b := NewTimeRange(10, 20)
	empty := NewTimeRange(3, 1)

	if !empty.IsEmpty() {
		t.Error("inverted range should be empty")
	}
	if got, want := a.Union(b), NewTimeRange(0, 20); got != want {
		t.Errorf("Union = %v, want %v", got, want)
	}
	if got := a.Union(empty); got != a {
		t.Errorf("union with empty should be identity, got %v", got)
	}
	if got := empty.Union(b); got != b {
		t.Errorf("union with empty should be identity, got %v", got)
	}
}

func TestTimePoint_Static(t *testing.T) {
	if !(TimePoint{}).IsStatic() {
		t.Error("empty point should be static")
	}
	if (TimePoint{tlFrame: 3}).IsStatic() {
		t.Error("point with a coordinate should not be static")
	}

	tp := TimePoint{tlFrame: 3, tlLog: 100}
	cl := tp.Clone()
	cl[tlFrame] = 99
	if tp[tlFrame] != 3 {
		t.Error("clone should be independent")
	}
	if TimePoint(nil).Clone() != nil {
		t.Error("clone of nil should be nil")
	}
}
