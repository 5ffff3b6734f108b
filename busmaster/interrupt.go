package busmaster

import "github.com/sarchlab/h8dma/dma"

// InterruptLatch records the interrupts raised by the DMA controller until
// the host acknowledges them.
type InterruptLatch struct {
	pending []int
	raised  uint64
}

// RaiseInternalInterrupt latches a vector.
func (l *InterruptLatch) RaiseInternalInterrupt(vector int) {
	l.pending = append(l.pending, vector)
	l.raised++
}

// Pending returns the latched vectors in the order they were raised.
func (l *InterruptLatch) Pending() []int {
	return append([]int(nil), l.pending...)
}

// Acknowledge removes the oldest latched vector and returns it.
func (l *InterruptLatch) Acknowledge() (vector int, ok bool) {
	if len(l.pending) == 0 {
		return 0, false
	}

	vector = l.pending[0]
	l.pending = l.pending[1:]

	return vector, true
}

// Raised returns the number of interrupts raised since creation.
func (l *InterruptLatch) Raised() uint64 {
	return l.raised
}

var _ dma.InterruptController = (*InterruptLatch)(nil)

// LatchState holds the latched vectors and the raise counter.
type LatchState struct {
	Pending []int
	Raised  uint64
}

// SaveState returns a copy of the latch contents.
func (l *InterruptLatch) SaveState() LatchState {
	return LatchState{Pending: l.Pending(), Raised: l.raised}
}

// LoadState replaces the latch contents.
func (l *InterruptLatch) LoadState(s LatchState) {
	l.pending = append([]int(nil), s.Pending...)
	l.raised = s.Raised
}
