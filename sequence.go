package gatewayclient

import (
	"strconv"

	"go.uber.org/atomic"
)

// SequenceTracker remembers the last sequence number received from the gateway. A zero
// value tracker holds no sequence.
type SequenceTracker struct {
	seq     atomic.Int64
	present atomic.Bool
}

// Load returns the last stored sequence and whether one was stored since the last reset.
func (s *SequenceTracker) Load() (int64, bool) {
	if !s.present.Load() {
		return 0, false
	}
	return s.seq.Load(), true
}

// Store replaces the sequence, even when n is lower than the current one.
func (s *SequenceTracker) Store(n int64) (previous int64, regressed bool) {
	previous = s.seq.Swap(n)
	hadPrevious := s.present.Swap(true)
	return previous, hadPrevious && n < previous
}

func (s *SequenceTracker) Reset() {
	s.present.Store(false)
	s.seq.Store(0)
}

// heartbeatData is the d field of a heartbeat: the sequence, or null when none is known.
func (s *SequenceTracker) heartbeatData() RawMessage {
	seq, ok := s.Load()
	if !ok {
		return RawMessage("null")
	}
	return RawMessage(strconv.FormatInt(seq, 10))
}
