// Package dma models the DMA controller of the H8 microcontroller family.
//
// A Controller owns two Channels. Each Channel decodes its control registers
// into TransferState values and hands them to the CPU model, which performs
// the bus cycles and reports back when the last unit is reached and when the
// transfer is done.
package dma

import "fmt"

// Submodule selects one of the two address-generation units of a channel.
type Submodule int

// The two submodules of a channel. In full-address mode only SubmoduleA is
// used.
const (
	SubmoduleA Submodule = 0
	SubmoduleB Submodule = 1
)

func (s Submodule) String() string {
	if s == SubmoduleA {
		return "A"
	}

	return "B"
}

func (s Submodule) bit() uint8 {
	return 1 << uint(s)
}

// Vector identifies the event that tries to start or resume a transfer.
// Non-negative values are interrupt vectors raised by on-chip peripherals.
type Vector int

// Vectors that do not come from on-chip peripherals.
const (
	VectorImmediate    Vector = -1
	VectorRequestLevel Vector = -2
	VectorRequestEdge  Vector = -3
)

func (v Vector) String() string {
	switch v {
	case VectorImmediate:
		return "immediate"
	case VectorRequestLevel:
		return "dreq-level"
	case VectorRequestEdge:
		return "dreq-edge"
	}

	return fmt.Sprintf("vector-%d", int(v))
}

// TransferState holds the resolved parameters of one submodule's transfer.
// The CPU model reads and advances it while moving data.
type TransferState struct {
	Source      uint32
	Dest        uint32
	SourceStep  int32
	DestStep    int32
	Count       uint32
	Wide        bool
	AutoRequest bool
	Suspended   bool
	ID          int
}

// Channel returns the index of the channel that owns the transfer.
func (t TransferState) Channel() int {
	return (t.ID >> 1) & 1
}

// Submodule returns the submodule that owns the transfer.
func (t TransferState) Submodule() Submodule {
	return Submodule(t.ID & 1)
}

// UnitSize returns the number of bytes moved per transfer unit.
func (t TransferState) UnitSize() uint32 {
	if t.Wide {
		return 2
	}

	return 1
}

// UnitCount returns the number of units left to move.
func (t TransferState) UnitCount() uint32 {
	return t.Count
}

func (t TransferState) String() string {
	return fmt.Sprintf(
		"id=%d src=%06x dst=%06x ss=%d ds=%d count=%x w=%t autoreq=%t suspended=%t",
		t.ID, t.Source, t.Dest, t.SourceStep, t.DestStep, t.Count,
		t.Wide, t.AutoRequest, t.Suspended)
}

// PackID returns the identifier used between the controller and its channels
// to address one submodule.
func PackID(channel int, sub Submodule) int {
	return (channel&1)<<1 | int(sub)
}

// UnpackID splits a packed identifier into channel index and submodule.
func UnpackID(id int) (channel int, sub Submodule) {
	return (id >> 1) & 1, Submodule(id & 1)
}
