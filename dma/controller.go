package dma

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/h8dma/hooking"
)

// NumChannels is the number of channels owned by a Controller.
const NumChannels = 2

// NumRequestLines is the number of external DREQ inputs.
const NumRequestLines = 2

// A Controller is the DMA controller. It owns the block-control register
// shared by both channels and routes requests and completion notifications
// to the channel they belong to.
type Controller struct {
	*hooking.HookableBase

	name string

	blockControl    uint16
	writeEnable     uint8
	transferControl uint8
	requestLines    [NumRequestLines]bool

	channels [NumChannels]*Channel
}

// Name returns the name of the controller.
func (c *Controller) Name() string {
	return c.name
}

// Channel returns one of the channels.
func (c *Controller) Channel(index int) *Channel {
	return c.channels[index]
}

// Domains returns the controller and its channels, for attaching hooks.
func (c *Controller) Domains() []hooking.NamedHookable {
	return []hooking.NamedHookable{c, c.channels[0], c.channels[1]}
}

// Reset restores the power-on register values of the controller and of both
// channels.
func (c *Controller) Reset() {
	c.blockControl = 0
	c.writeEnable = 0
	c.transferControl = 0
	c.requestLines = [NumRequestLines]bool{}

	for _, ch := range c.channels {
		ch.Reset()
	}
}

func (c *Controller) logAccess(pos *hooking.HookPos, reg string, value uint32, width int) {
	invoke(c, pos, RegAccess{Reg: reg, Value: value, Width: width}, nil)
}

// ReadBlockControl returns DMABCR.
func (c *Controller) ReadBlockControl() uint16 {
	c.logAccess(HookPosRegRead, "DMABCR", uint32(c.blockControl), 16)
	return c.blockControl
}

// WriteBlockControl updates DMABCR, hands each channel its slice of the
// register and lets both channels try to start, channel 0 first.
func (c *Controller) WriteBlockControl(value, mask uint16) error {
	c.blockControl = mergeMasked(c.blockControl, value, mask)
	c.logAccess(HookPosRegWrite, "DMABCR", uint32(c.blockControl), 16)

	var errs []error
	for i, ch := range c.channels {
		ch.configure(blockControlSlice(c.blockControl, i))

		if _, err := ch.AttemptStart(VectorImmediate); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// blockControlSlice extracts the bits of DMABCR that belong to a channel.
func blockControlSlice(bcr uint16, channel int) Config {
	shift := uint(channel)

	return Config{
		FullAddress:     bcr&(0x4000<<shift) != 0,
		ShortAux:        bcr&(0x1000<<shift) != 0,
		IdleSelect:      uint8(bcr>>(8+2*shift)) & 3,
		Enable:          uint8(bcr>>(4+2*shift)) & 3,
		InterruptEnable: uint8(bcr>>(2*shift)) & 3,
	}
}

// ReadWriteEnable returns DMAWER.
func (c *Controller) ReadWriteEnable() uint8 {
	c.logAccess(HookPosRegRead, "DMAWER", uint32(c.writeEnable), 8)
	return c.writeEnable
}

// WriteWriteEnable updates DMAWER. The value is stored only.
func (c *Controller) WriteWriteEnable(value uint8) {
	c.writeEnable = value
	c.logAccess(HookPosRegWrite, "DMAWER", uint32(value), 8)
}

// ReadTransferControl returns DMATCR.
func (c *Controller) ReadTransferControl() uint8 {
	c.logAccess(HookPosRegRead, "DMATCR", uint32(c.transferControl), 8)
	return c.transferControl
}

// WriteTransferControl updates DMATCR. The value is stored only.
func (c *Controller) WriteTransferControl(value uint8) {
	c.transferControl = value
	c.logAccess(HookPosRegWrite, "DMATCR", uint32(value), 8)
}

// TriggerByVector is called when an on-chip event that can request a DMA
// transfer occurs. Both channels are tried, channel 0 first, because both
// may be listening to the same vector.
func (c *Controller) TriggerByVector(v Vector) (bool, error) {
	var errs []error

	started := false
	for _, ch := range c.channels {
		ok, err := ch.AttemptStart(v)
		if err != nil {
			errs = append(errs, err)
		}

		started = started || ok
	}

	return started, errors.Join(errs...)
}

// SetRequestLine updates the level of a DREQ input. An asserted line makes a
// level-triggered attempt on its channel; a rising line also makes an
// edge-triggered attempt. Unknown lines are logged and ignored.
func (c *Controller) SetRequestLine(line int, asserted bool) error {
	if line < 0 || line >= NumRequestLines {
		err := fmt.Errorf("%s: input line %d not supported", c.name, line)
		invoke(c, HookPosWarning, err, nil)
		log.Print(err)

		return nil
	}

	ch := c.channels[line]

	var err error
	if asserted {
		_, err = ch.AttemptStart(VectorRequestLevel)
		if err == nil && !c.requestLines[line] {
			_, err = ch.AttemptStart(VectorRequestEdge)
		}
	}

	c.requestLines[line] = asserted

	return err
}

// RequestLine returns the last level seen on a DREQ input.
func (c *Controller) RequestLine(line int) bool {
	if line < 0 || line >= NumRequestLines {
		return false
	}

	return c.requestLines[line]
}

// ClearEnable clears the enable bit of the submodule identified by id in
// DMABCR. Channels call it when a transfer completes.
func (c *Controller) ClearEnable(id int) {
	c.blockControl &^= 0x0010 << uint(id&3)
}

// NotifyLastUnit routes the CPU's last-unit notification to the submodule
// identified by id.
func (c *Controller) NotifyLastUnit(id int) {
	channel, sub := UnpackID(id)
	c.channels[channel].NotifyLastUnit(sub)
}

// NotifyTransferDone routes the CPU's completion notification to the
// submodule identified by id.
func (c *Controller) NotifyTransferDone(id int) error {
	channel, sub := UnpackID(id)
	return c.channels[channel].NotifyTransferDone(sub)
}

// Transfer returns the transfer state of the submodule identified by id.
func (c *Controller) Transfer(id int) *TransferState {
	channel, sub := UnpackID(id)
	return c.channels[channel].Transfer(sub)
}
