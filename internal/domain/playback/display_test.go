package playback

import "testing"

func TestSynchronizerProportionalMapping(t *testing.T) {
	// 10 display segments over 2 synthesis segments: each synthesis
	// segment spans 5 display segments.
	s := NewSynchronizer(10, 2)

	tests := []struct {
		name     string
		segment  int
		position float64
		duration float64
		want     int
	}{
		{"start of first segment", 0, 0, 60, 0},
		{"middle of first segment", 0, 30, 60, 2},
		{"end of first segment clamps", 0, 60, 60, 5},
		{"start of second segment", 1, 0, 60, 5},
		{"middle of second segment", 1, 30, 60, 7},
		{"end of track clamps to last", 1, 60, 60, 9},
		{"zero duration maps to segment start", 1, 10, 0, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Index(tt.segment, tt.position, tt.duration); got != tt.want {
				t.Errorf("Index(%d, %v, %v) = %d, want %d",
					tt.segment, tt.position, tt.duration, got, tt.want)
			}
		})
	}
}

func TestSynchronizerReportsChangeOnlyOnMove(t *testing.T) {
	s := NewSynchronizer(10, 2)

	idx, changed := s.Update(0, 0, 60)
	if !changed || idx != 0 {
		t.Fatalf("first update = (%d, %v), want (0, true)", idx, changed)
	}
	if _, changed := s.Update(0, 1, 60); changed {
		t.Error("tiny move within the same display segment reported a change")
	}
	if idx, changed := s.Update(0, 30, 60); !changed || idx != 2 {
		t.Errorf("move to new display segment = (%d, %v), want (2, true)", idx, changed)
	}

	s.Reset()
	if s.Current() != -1 {
		t.Errorf("Current() after reset = %d, want -1", s.Current())
	}
	if _, changed := s.Update(0, 30, 60); !changed {
		t.Error("first update after reset should report a change")
	}
}

func TestSynchronizerWithNothingToMap(t *testing.T) {
	s := NewSynchronizer(0, 0)
	if got := s.Index(0, 10, 60); got != -1 {
		t.Errorf("Index() = %d, want -1 with no display segments", got)
	}
}
