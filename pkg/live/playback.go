package live

import (
	"sync"
	"time"
)

// Scheduler assigns start times to arriving audio chunks so they play
// back-to-back with no gap and no overlap. Chunks are scheduled in arrival
// order; the clock only moves forward until an interruption resets it.
type Scheduler struct {
	mu   sync.Mutex
	next time.Duration
}

// NewScheduler returns a scheduler with the clock at zero.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule returns the start time for a chunk of the given duration arriving
// when the playback clock reads now. The chunk starts at max(next, now) and
// the clock advances by dur.
func (s *Scheduler) Schedule(now, dur time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.next
	if now > start {
		start = now
	}
	s.next = start + dur
	return start
}

// Reset zeroes the scheduling clock. Called on barge-in, after all active
// sources have been stopped.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = 0
}

// NextStart returns the current value of the scheduling clock.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Player consumes scheduled PCM chunks. Flush discards everything queued or
// playing; it is the barge-in path and must be safe to call at any time.
type Player interface {
	Play(pcm []byte) error
	Flush() error
	Close() error
}

// NopPlayer discards audio. Used when no local speaker exists, for example
// when a browser client does its own playback.
type NopPlayer struct{}

func (NopPlayer) Play([]byte) error { return nil }
func (NopPlayer) Flush() error      { return nil }
func (NopPlayer) Close() error      { return nil }
