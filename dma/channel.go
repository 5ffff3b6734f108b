package dma

import (
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/sarchlab/h8dma/hooking"
	"github.com/sarchlab/h8dma/tracing"
)

// TaskKind is the kind of the tracing tasks that cover one transfer, from
// its start to its completion.
const TaskKind = "dma_transfer"

// IsTransferTask is a tracing.TaskFilter that keeps transfer tasks.
func IsTransferTask(t tracing.Task) bool {
	return t.Kind == TaskKind
}

// Steps recorded on transfer tasks.
const (
	StepResume   = "resume"
	StepLastUnit = "last_unit"
	StepReload   = "reload"
)

// noVector marks an activation source that no peripheral drives.
const noVector = -1

// A Channel is one DMA channel with its two submodules.
type Channel struct {
	*hooking.HookableBase

	name  string
	index int

	cpu     CPU
	intc    InterruptController
	dmac    enableClearer
	irqBase int

	activationVectors [16]int

	mar   [2]uint32
	ioar  [2]uint16
	etcr  [2]uint16
	dmacr uint16
	dtcr  [2]uint8

	fullAddress     bool
	shortAux        bool
	idleSelect      uint8
	enable          uint8
	interruptEnable uint8

	transfers [2]TransferState
	inFlight  [2]bool
	taskIDs   [2]string
}

// Name returns the name of the channel.
func (c *Channel) Name() string {
	return c.name
}

// Index returns the position of the channel in its controller.
func (c *Channel) Index() int {
	return c.index
}

// Reset restores the power-on register values. Transfers in flight are
// forgotten.
func (c *Channel) Reset() {
	c.mar = [2]uint32{}
	c.ioar = [2]uint16{}
	c.etcr = [2]uint16{}
	c.dmacr = 0
	c.dtcr = [2]uint8{}
	c.fullAddress = false
	c.shortAux = false
	c.idleSelect = 0
	c.enable = 0
	c.interruptEnable = 0

	for sub := range c.transfers {
		if c.inFlight[sub] {
			c.endTask(Submodule(sub))
		}

		c.transfers[sub] = TransferState{ID: c.transfers[sub].ID}
		c.inFlight[sub] = false
	}
}

// FullAddress tells if the channel runs in full-address mode.
func (c *Channel) FullAddress() bool {
	return c.fullAddress
}

// Config returns the mode flags currently derived from the block-control
// register or from the legacy registers.
func (c *Channel) Config() Config {
	return Config{
		FullAddress:     c.fullAddress,
		ShortAux:        c.shortAux,
		IdleSelect:      c.idleSelect,
		Enable:          c.enable,
		InterruptEnable: c.interruptEnable,
	}
}

// Enabled tells if the enable bit of a submodule is set.
func (c *Channel) Enabled(sub Submodule) bool {
	return c.enable&sub.bit() != 0
}

// Transfer returns the transfer state owned by a submodule.
func (c *Channel) Transfer(sub Submodule) *TransferState {
	return &c.transfers[sub]
}

// InFlight tells if a submodule has a transfer that the CPU has not retired.
func (c *Channel) InFlight(sub Submodule) bool {
	return c.inFlight[sub]
}

func (c *Channel) regName(base string, sub Submodule) string {
	return fmt.Sprintf("%s%d%s", base, c.index, sub)
}

func (c *Channel) logAccess(pos *hooking.HookPos, reg string, value uint32, width int) {
	invoke(c, pos, RegAccess{Reg: reg, Value: value, Width: width}, nil)
}

// ReadMemoryAddressHigh returns bits 16 to 23 of a memory address register.
func (c *Channel) ReadMemoryAddressHigh(sub Submodule) uint16 {
	value := uint16(c.mar[sub] >> 16)
	c.logAccess(HookPosRegRead, c.regName("MAR", sub)+"H", c.mar[sub], 24)

	return value
}

// WriteMemoryAddressHigh updates bits 16 to 23 of a memory address register.
// Only the low byte of the word is significant.
func (c *Channel) WriteMemoryAddressHigh(sub Submodule, data, mask uint16) {
	high := mergeMasked(uint16(c.mar[sub]>>16), data, mask) & 0x00ff
	c.mar[sub] = uint32(high)<<16 | c.mar[sub]&0xffff
	c.logAccess(HookPosRegWrite, c.regName("MAR", sub)+"H", c.mar[sub], 24)
}

// ReadMemoryAddressLow returns bits 0 to 15 of a memory address register.
func (c *Channel) ReadMemoryAddressLow(sub Submodule) uint16 {
	value := uint16(c.mar[sub])
	c.logAccess(HookPosRegRead, c.regName("MAR", sub)+"L", c.mar[sub], 24)

	return value
}

// WriteMemoryAddressLow updates bits 0 to 15 of a memory address register.
func (c *Channel) WriteMemoryAddressLow(sub Submodule, data, mask uint16) {
	low := mergeMasked(uint16(c.mar[sub]), data, mask)
	c.mar[sub] = c.mar[sub]&0xff0000 | uint32(low)
	c.logAccess(HookPosRegWrite, c.regName("MAR", sub)+"L", c.mar[sub], 24)
}

// ReadIOAddress returns an I/O address register.
func (c *Channel) ReadIOAddress(sub Submodule) uint16 {
	c.logAccess(HookPosRegRead, c.regName("IOAR", sub), uint32(c.ioar[sub]), 16)
	return c.ioar[sub]
}

// ReadIOAddress8 returns the low byte of an I/O address register, for
// address spaces where the high byte is always 0xff.
func (c *Channel) ReadIOAddress8(sub Submodule) uint8 {
	c.logAccess(HookPosRegRead, c.regName("IOAR", sub), uint32(c.ioar[sub]), 16)
	return uint8(c.ioar[sub])
}

// WriteIOAddress updates an I/O address register.
func (c *Channel) WriteIOAddress(sub Submodule, data, mask uint16) {
	c.ioar[sub] = mergeMasked(c.ioar[sub], data, mask)
	c.logAccess(HookPosRegWrite, c.regName("IOAR", sub), uint32(c.ioar[sub]), 16)
}

// WriteIOAddress8 sets the low byte of an I/O address register and forces
// the high byte to 0xff.
func (c *Channel) WriteIOAddress8(sub Submodule, data uint8) {
	c.ioar[sub] = 0xff00 | uint16(data)
	c.logAccess(HookPosRegWrite, c.regName("IOAR", sub), uint32(c.ioar[sub]), 16)
}

// ReadExtendedCount returns an extended transfer count register.
func (c *Channel) ReadExtendedCount(sub Submodule) uint16 {
	c.logAccess(HookPosRegRead, c.regName("ETCR", sub), uint32(c.etcr[sub]), 16)
	return c.etcr[sub]
}

// WriteExtendedCount updates an extended transfer count register.
func (c *Channel) WriteExtendedCount(sub Submodule, data, mask uint16) {
	c.etcr[sub] = mergeMasked(c.etcr[sub], data, mask)
	c.logAccess(HookPosRegWrite, c.regName("ETCR", sub), uint32(c.etcr[sub]), 16)
}

// ReadControl returns DMACR.
func (c *Channel) ReadControl() uint16 {
	c.logAccess(HookPosRegRead, fmt.Sprintf("DMACR%d", c.index), uint32(c.dmacr), 16)
	return c.dmacr
}

// WriteControl updates DMACR and tries to start the enabled submodules.
func (c *Channel) WriteControl(data, mask uint16) error {
	c.dmacr = mergeMasked(c.dmacr, data, mask)
	c.logAccess(HookPosRegWrite, fmt.Sprintf("DMACR%d", c.index), uint32(c.dmacr), 16)

	_, err := c.AttemptStart(VectorImmediate)

	return err
}

// ReadLegacyControl returns one of the DTCR registers.
func (c *Channel) ReadLegacyControl(sub Submodule) uint8 {
	c.logAccess(HookPosRegRead, c.regName("DTCR", sub), uint32(c.dtcr[sub]), 8)
	return c.dtcr[sub]
}

// WriteLegacyControl updates one of the DTCR registers. Once the enable bits
// of both DTCRs are set, the pair is translated into DMACR and the block
// configuration, and the channel tries to start.
func (c *Channel) WriteLegacyControl(sub Submodule, data uint8) error {
	c.dtcr[sub] = data
	c.logAccess(HookPosRegWrite, c.regName("DTCR", sub), uint32(data), 8)

	if c.dtcr[0]&dtcrEnable == 0 || c.dtcr[1]&dtcrEnable == 0 {
		return nil
	}

	cfg := translateLegacy(c.dtcr[0], c.dtcr[1])
	c.dmacr = cfg.control
	c.configure(Config{
		FullAddress:     cfg.fullAddress,
		ShortAux:        cfg.shortAux,
		IdleSelect:      cfg.idleSelect,
		Enable:          cfg.enable,
		InterruptEnable: cfg.interruptEnable,
	})

	_, err := c.AttemptStart(VectorImmediate)

	return err
}

// configure replaces the mode flags. Submodules that lose their enable bit
// have their transfer retired and suspended.
func (c *Channel) configure(cfg Config) {
	c.fullAddress = cfg.FullAddress
	c.shortAux = cfg.ShortAux
	c.idleSelect = cfg.IdleSelect & 3
	c.enable = cfg.Enable & 3
	c.interruptEnable = cfg.InterruptEnable & 3

	invoke(c, HookPosConfigure, c.Config(), nil)

	for sub := SubmoduleA; sub <= SubmoduleB; sub++ {
		if c.inFlight[sub] && !c.runnable(sub) {
			c.inFlight[sub] = false
			c.transfers[sub].Suspended = true
			c.endTask(sub)
		}
	}
}

func (c *Channel) runnable(sub Submodule) bool {
	if c.fullAddress {
		return sub == SubmoduleA && c.enable == 3
	}

	return c.Enabled(sub)
}

func (c *Channel) controlByte(sub Submodule) uint8 {
	if sub == SubmoduleA {
		return uint8(c.dmacr >> 8)
	}

	return uint8(c.dmacr)
}

func (c *Channel) requestMatches(v Vector) bool {
	code := c.dmacr & crRequestMask

	return (code == requestEdgeCode && v == VectorRequestEdge) ||
		(code == requestLevelCode && v == VectorRequestLevel)
}

func (c *Channel) activationMatches(code uint8, v Vector) bool {
	return v >= 0 && c.activationVectors[code&0x0f] == int(v)
}

// AttemptStart evaluates a start condition. An immediate vector starts the
// enabled submodules; request and peripheral vectors only resume primed
// transfers whose request source matches. It reports whether any submodule
// was started or resumed.
func (c *Channel) AttemptStart(v Vector) (bool, error) {
	if c.fullAddress {
		return c.attemptStartFull(v)
	}

	return c.attemptStartShort(v)
}

func (c *Channel) attemptStartFull(v Vector) (bool, error) {
	if c.enable != 3 {
		return false, nil
	}

	if c.dmacr&crBlockEnable != 0 {
		return false, blockModeError(c.name, "startup test")
	}

	switch {
	case v == VectorImmediate:
		return c.startOrSkip(SubmoduleA)
	case c.requestMatches(v):
		return c.resume(SubmoduleA, v), nil
	case c.activationMatches(uint8(c.dmacr&crActivationFA), v):
		return c.resume(SubmoduleA, v), nil
	}

	return false, nil
}

func (c *Channel) attemptStartShort(v Vector) (bool, error) {
	if c.enable == 0 {
		return false, nil
	}

	if v == VectorImmediate {
		// B is handed over first so that A ends up as the CPU's current
		// transfer: A has priority.
		started := false
		for _, sub := range []Submodule{SubmoduleB, SubmoduleA} {
			if !c.Enabled(sub) {
				continue
			}

			ok, err := c.startOrSkip(sub)
			if err != nil {
				return started, err
			}
			started = started || ok
		}

		return started, nil
	}

	if v >= 0 {
		resumed := false
		for _, sub := range []Submodule{SubmoduleA, SubmoduleB} {
			if c.Enabled(sub) && c.activationMatches(c.controlByte(sub)&scrActivation, v) {
				resumed = c.resume(sub, v) || resumed
			}
		}

		return resumed, nil
	}

	// Only B listens to the request line.
	if c.Enabled(SubmoduleB) && c.requestMatches(v) {
		return c.resume(SubmoduleB, v), nil
	}

	return false, nil
}

func (c *Channel) startOrSkip(sub Submodule) (bool, error) {
	err := c.start(sub)
	if errors.Is(err, ErrTransferInFlight) {
		invoke(c, HookPosWarning, err, nil)
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (c *Channel) resume(sub Submodule, v Vector) bool {
	if !c.inFlight[sub] {
		return false
	}

	c.transfers[sub].Suspended = false
	invoke(c, HookPosTransferResume, c.transfers[sub], v)
	tracing.AddTaskStep(c.taskIDs[sub], c, StepResume)

	return true
}

// start derives the transfer parameters of a submodule and hands them to
// the CPU.
func (c *Channel) start(sub Submodule) error {
	if c.inFlight[sub] {
		return fmt.Errorf("%s: submodule %s: %w", c.name, sub, ErrTransferInFlight)
	}

	var mode Mode
	if c.fullAddress {
		if c.dmacr&crBlockEnable != 0 {
			return blockModeError(c.name, "start")
		}

		mode = c.loadFullAddress(sub)
	} else {
		mode = c.loadShortAddress(sub)
	}

	c.inFlight[sub] = true
	state := &c.transfers[sub]
	invoke(c, HookPosTransferStart, *state, mode)

	c.taskIDs[sub] = xid.New().String()
	tracing.StartTask(c.taskIDs[sub], "", c, TaskKind, string(mode), *state)

	c.cpu.SetCurrentTransfer(state)

	return nil
}

func (c *Channel) loadFullAddress(sub Submodule) Mode {
	t := &c.transfers[sub]

	t.Source = c.mar[0]
	t.Dest = c.mar[1]
	t.Count = fullCount(c.etcr[0])
	t.Wide = c.dmacr&crWordSize != 0
	t.AutoRequest = c.dmacr&crAutoRequest == crAutoRequest
	t.Suspended = !t.AutoRequest

	step := int32(t.UnitSize())
	t.SourceStep = addressStep(
		c.dmacr&crSourceInc != 0, c.dmacr&crSourceDec != 0, step)
	t.DestStep = addressStep(
		c.dmacr&crDestInc != 0, c.dmacr&crDestDec != 0, step)

	return ModeNormal
}

func (c *Channel) mode(sub Submodule) Mode {
	if c.fullAddress {
		if c.dmacr&crBlockEnable != 0 {
			return ModeBlock
		}

		return ModeNormal
	}

	switch {
	case c.controlByte(sub)&scrRepeat == 0:
		return ModeSequential
	case c.interruptEnable&sub.bit() != 0:
		return ModeIdle
	default:
		return ModeRepeat
	}
}

// Mode returns how a submodule would run with the current registers.
func (c *Channel) Mode(sub Submodule) Mode {
	return c.mode(sub)
}

func (c *Channel) loadShortAddress(sub Submodule) Mode {
	t := &c.transfers[sub]
	cr := c.controlByte(sub)

	t.Wide = cr&scrWordSize != 0
	t.AutoRequest = false
	t.Suspended = true

	step := addressStep(true, cr&scrDecrement != 0, int32(t.UnitSize()))

	mode := c.mode(sub)
	switch mode {
	case ModeSequential:
		t.Count = fullCount(c.etcr[sub])
	case ModeIdle:
		t.Count = fullCount(c.etcr[sub])
		step = 0
	case ModeRepeat:
		t.Count = repeatCount(c.etcr[sub])
	}

	io := ioBase | uint32(c.ioar[sub])
	if cr&scrIOSource != 0 {
		t.Source = io
		t.Dest = c.mar[sub]
		t.SourceStep = 0
		t.DestStep = step
	} else {
		t.Source = c.mar[sub]
		t.Dest = io
		t.SourceStep = step
		t.DestStep = 0
	}

	return mode
}

// NotifyLastUnit is called by the CPU when it starts the last unit of a
// transfer. Transfers that wait for requests assert the transfer-end
// signal.
func (c *Channel) NotifyLastUnit(sub Submodule) {
	t := &c.transfers[sub]
	invoke(c, HookPosTransferLastUnit, *t, nil)
	tracing.AddTaskStep(c.taskIDs[sub], c, StepLastUnit)

	if !t.AutoRequest {
		c.cpu.SetEndSignal(c.index, true)
	}
}

// NotifyTransferDone is called by the CPU when a transfer has moved all its
// units. Repeat-mode submodules reload and stay armed; all others are
// disabled and may raise their transfer-end interrupt.
func (c *Channel) NotifyTransferDone(sub Submodule) error {
	t := &c.transfers[sub]
	if !t.AutoRequest {
		c.cpu.SetEndSignal(c.index, false)
	}

	if c.fullAddress {
		if c.dmacr&crBlockEnable != 0 {
			return blockModeError(c.name, "count done")
		}

		c.finish(SubmoduleA)

		return nil
	}

	if c.mode(sub) == ModeRepeat {
		c.reload(sub)
		return nil
	}

	c.finish(sub)

	return nil
}

func (c *Channel) reload(sub Submodule) {
	t := &c.transfers[sub]

	t.Count = repeatCount(c.etcr[sub])
	if c.controlByte(sub)&scrIOSource != 0 {
		t.Dest = c.mar[sub]
	} else {
		t.Source = c.mar[sub]
	}

	invoke(c, HookPosTransferReload, *t, ModeRepeat)
	tracing.AddTaskStep(c.taskIDs[sub], c, StepReload)
}

func (c *Channel) finish(sub Submodule) {
	t := &c.transfers[sub]

	c.enable &^= sub.bit()
	c.inFlight[sub] = false
	c.dmac.ClearEnable(t.ID)
	c.dtcr[sub] &^= dtcrEnable

	invoke(c, HookPosTransferDone, *t, c.mode(sub))
	c.endTask(sub)

	if c.interruptEnable&sub.bit() != 0 {
		vector := c.irqBase + int(sub)
		invoke(c, HookPosInterrupt, vector, nil)
		c.intc.RaiseInternalInterrupt(vector)
	}
}

func (c *Channel) endTask(sub Submodule) {
	if c.taskIDs[sub] == "" {
		return
	}

	tracing.EndTask(c.taskIDs[sub], c)
	c.taskIDs[sub] = ""
}
