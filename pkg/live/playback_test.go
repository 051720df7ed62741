package live

import (
	"testing"
	"time"
)

func TestScheduler_GaplessBackToBack(t *testing.T) {
	s := NewScheduler()

	// Two chunks arriving while the clock is behind schedule play
	// back-to-back: second start == first start + first duration.
	d1 := 120 * time.Millisecond
	d2 := 80 * time.Millisecond

	start1 := s.Schedule(0, d1)
	if start1 != 0 {
		t.Fatalf("first start = %v, want 0", start1)
	}
	start2 := s.Schedule(10*time.Millisecond, d2)
	if start2 != d1 {
		t.Fatalf("second start = %v, want %v", start2, d1)
	}
	if got := s.NextStart(); got != d1+d2 {
		t.Fatalf("next = %v, want %v", got, d1+d2)
	}
}

func TestScheduler_LateChunkStartsNow(t *testing.T) {
	s := NewScheduler()

	s.Schedule(0, 50*time.Millisecond)

	// The queue drained 150ms ago; the chunk starts immediately, not in
	// the past.
	now := 200 * time.Millisecond
	start := s.Schedule(now, 40*time.Millisecond)
	if start != now {
		t.Fatalf("late chunk start = %v, want %v", start, now)
	}
	if got := s.NextStart(); got != now+40*time.Millisecond {
		t.Fatalf("next = %v, want %v", got, now+40*time.Millisecond)
	}
}

func TestScheduler_ResetZeroesClock(t *testing.T) {
	s := NewScheduler()
	s.Schedule(0, time.Second)
	s.Reset()
	if got := s.NextStart(); got != 0 {
		t.Fatalf("next after reset = %v, want 0", got)
	}

	// Post-interruption chunks schedule fresh from the arrival time.
	start := s.Schedule(30*time.Millisecond, 20*time.Millisecond)
	if start != 30*time.Millisecond {
		t.Fatalf("start after reset = %v, want 30ms", start)
	}
}
