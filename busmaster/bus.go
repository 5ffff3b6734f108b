// Package busmaster provides a minimal CPU-side collaborator for the DMA
// controller. It executes the transfers that the controller hands over, one
// unit per Step, against a sparse 24-bit memory.
package busmaster

import (
	"fmt"

	"github.com/sarchlab/h8dma/dma"
	"github.com/sarchlab/h8dma/hooking"
	"github.com/sarchlab/h8dma/tracing"
)

// CyclesPerUnit is the number of bus cycles spent on one transfer unit, a
// read followed by a write.
const CyclesPerUnit = 2

const numSlots = dma.NumChannels * 2

// HookPosUnitMoved fires after each unit is written. Item is a UnitMove.
var HookPosUnitMoved = &hooking.HookPos{Name: "UnitMoved"}

// Controller is the part of the DMA controller that the bus reports to.
type Controller interface {
	NotifyLastUnit(id int)
	NotifyTransferDone(id int) error
}

// UnitMove describes one unit moved by the bus.
type UnitMove struct {
	ID     int
	Source uint32
	Dest   uint32
	Value  uint16
	Wide   bool
	Time   tracing.VTime
}

func (m UnitMove) String() string {
	if m.Wide {
		return fmt.Sprintf("id=%d %06x->%06x %04x", m.ID, m.Source, m.Dest, m.Value)
	}

	return fmt.Sprintf("id=%d %06x->%06x %02x", m.ID, m.Source, m.Dest, m.Value)
}

// Bus executes DMA transfers. It implements dma.CPU and tracing.TimeTeller.
type Bus struct {
	*hooking.HookableBase

	name       string
	memory     *Storage
	dmac       Controller
	transfers  [numSlots]*dma.TransferState
	endSignals [dma.NumChannels]bool
	now        tracing.VTime
	unitsMoved uint64
}

// NewBus creates a bus over the given memory.
func NewBus(name string, memory *Storage) *Bus {
	return &Bus{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
		memory:       memory,
	}
}

// Name returns the name of the bus.
func (b *Bus) Name() string {
	return b.name
}

// Connect sets the controller that receives the transfer notifications. It
// must be called before the first Step.
func (b *Bus) Connect(dmac Controller) {
	b.dmac = dmac
}

// Memory returns the storage behind the bus.
func (b *Bus) Memory() *Storage {
	return b.memory
}

// SetCurrentTransfer installs the transfer in the slot of its packed id.
func (b *Bus) SetCurrentTransfer(state *dma.TransferState) {
	b.transfers[state.ID&(numSlots-1)] = state
}

// SetEndSignal drives the transfer-end output of a channel.
func (b *Bus) SetEndSignal(channel int, asserted bool) {
	b.endSignals[channel&1] = asserted
}

// EndSignal returns the state of the transfer-end output of a channel.
func (b *Bus) EndSignal(channel int) bool {
	return b.endSignals[channel&1]
}

// CurrentTime returns the number of bus cycles spent so far.
func (b *Bus) CurrentTime() tracing.VTime {
	return b.now
}

// UnitsMoved returns the number of units moved so far.
func (b *Bus) UnitsMoved() uint64 {
	return b.unitsMoved
}

// Active reports whether the bus holds a transfer for the packed id.
func (b *Bus) Active(id int) bool {
	return b.transfers[id&(numSlots-1)] != nil
}

// BusState is the part of the bus that outlives its transfers: the cycle
// counter, the units moved, and the transfer-end outputs.
type BusState struct {
	Now        tracing.VTime
	UnitsMoved uint64
	EndSignals [dma.NumChannels]bool
}

// SaveState returns the counters and end signals of the bus.
func (b *Bus) SaveState() BusState {
	return BusState{
		Now:        b.now,
		UnitsMoved: b.unitsMoved,
		EndSignals: b.endSignals,
	}
}

// LoadState restores the counters and end signals of the bus. The transfers
// it holds are left alone.
func (b *Bus) LoadState(s BusState) {
	b.now = s.Now
	b.unitsMoved = s.UnitsMoved
	b.endSignals = s.EndSignals
}

// Reset drops every transfer and clears the end signals. Memory and the
// cycle counter are kept.
func (b *Bus) Reset() {
	b.transfers = [numSlots]*dma.TransferState{}
	b.endSignals = [dma.NumChannels]bool{}
}

// Step moves one unit of the runnable transfer with the lowest packed id.
// It reports false when every transfer is suspended or there is none.
func (b *Bus) Step() (madeProgress bool, err error) {
	for id, t := range b.transfers {
		if t == nil || t.Suspended {
			continue
		}

		return true, b.moveUnit(id, t)
	}

	return false, nil
}

// Run steps until the bus makes no progress or maxSteps units have been
// moved. A non-positive maxSteps means no limit. It returns the number of
// units moved.
func (b *Bus) Run(maxSteps int) (int, error) {
	steps := 0
	for maxSteps <= 0 || steps < maxSteps {
		progress, err := b.Step()
		if err != nil {
			return steps, err
		}

		if !progress {
			break
		}

		steps++
	}

	return steps, nil
}

func (b *Bus) moveUnit(id int, t *dma.TransferState) error {
	if b.dmac == nil {
		panic("bus is not connected to a DMA controller")
	}

	value, err := b.memory.ReadUnit(t.Source, t.Wide)
	if err != nil {
		return fmt.Errorf("%s: transfer %d: read %06x: %w", b.name, id, t.Source, err)
	}

	if t.Count == 1 {
		b.dmac.NotifyLastUnit(id)
	}

	if err := b.memory.WriteUnit(t.Dest, t.Wide, value); err != nil {
		return fmt.Errorf("%s: transfer %d: write %06x: %w", b.name, id, t.Dest, err)
	}

	b.now += CyclesPerUnit
	b.unitsMoved++
	b.invoke(UnitMove{
		ID:     id,
		Source: t.Source,
		Dest:   t.Dest,
		Value:  value,
		Wide:   t.Wide,
		Time:   b.now,
	})

	t.Source = advance(t.Source, t.SourceStep)
	t.Dest = advance(t.Dest, t.DestStep)
	t.Count--

	if !t.AutoRequest {
		t.Suspended = true
	}

	if t.Count > 0 {
		return nil
	}

	b.transfers[id] = nil
	if err := b.dmac.NotifyTransferDone(id); err != nil {
		return err
	}

	// Repeat mode reloads the count in place and keeps the submodule armed.
	if t.Count > 0 {
		b.transfers[id] = t
	}

	return nil
}

func (b *Bus) invoke(move UnitMove) {
	if b.NumHooks() == 0 {
		return
	}

	b.InvokeHook(hooking.HookCtx{
		Domain: b,
		Pos:    HookPosUnitMoved,
		Item:   move,
	})
}

func advance(addr uint32, step int32) uint32 {
	return uint32(int64(addr)+int64(step)) & AddressMask
}

var _ dma.CPU = (*Bus)(nil)
var _ tracing.TimeTeller = (*Bus)(nil)
