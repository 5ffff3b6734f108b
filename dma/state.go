package dma

// ChannelState is the saved form of a Channel.
type ChannelState struct {
	MemoryAddress [2]uint32
	IOAddress     [2]uint16
	ExtendedCount [2]uint16
	Control       uint16
	LegacyControl [2]uint8

	FullAddress     bool
	ShortAux        bool
	IdleSelect      uint8
	Enable          uint8
	InterruptEnable uint8

	Transfers [2]TransferState
	InFlight  [2]bool
}

// State is the saved form of a Controller and its channels.
type State struct {
	BlockControl    uint16
	WriteEnable     uint8
	TransferControl uint8
	RequestLines    [NumRequestLines]bool
	Channels        [NumChannels]ChannelState
}

// SaveState captures the registers and transfer states.
func (c *Controller) SaveState() State {
	s := State{
		BlockControl:    c.blockControl,
		WriteEnable:     c.writeEnable,
		TransferControl: c.transferControl,
		RequestLines:    c.requestLines,
	}

	for i, ch := range c.channels {
		s.Channels[i] = ch.saveState()
	}

	return s
}

// LoadState restores a captured state. It does not start any transfer and
// does not notify the CPU; the CPU model restores its own references through
// Transfer. Restored transfers are not traced.
func (c *Controller) LoadState(s State) {
	c.blockControl = s.BlockControl
	c.writeEnable = s.WriteEnable
	c.transferControl = s.TransferControl
	c.requestLines = s.RequestLines

	for i, ch := range c.channels {
		ch.loadState(s.Channels[i])
	}
}

func (c *Channel) saveState() ChannelState {
	return ChannelState{
		MemoryAddress:   c.mar,
		IOAddress:       c.ioar,
		ExtendedCount:   c.etcr,
		Control:         c.dmacr,
		LegacyControl:   c.dtcr,
		FullAddress:     c.fullAddress,
		ShortAux:        c.shortAux,
		IdleSelect:      c.idleSelect,
		Enable:          c.enable,
		InterruptEnable: c.interruptEnable,
		Transfers:       c.transfers,
		InFlight:        c.inFlight,
	}
}

func (c *Channel) loadState(s ChannelState) {
	c.mar = s.MemoryAddress
	c.ioar = s.IOAddress
	c.etcr = s.ExtendedCount
	c.dmacr = s.Control
	c.dtcr = s.LegacyControl
	c.fullAddress = s.FullAddress
	c.shortAux = s.ShortAux
	c.idleSelect = s.IdleSelect & 3
	c.enable = s.Enable & 3
	c.interruptEnable = s.InterruptEnable & 3
	c.inFlight = s.InFlight
	c.taskIDs = [2]string{}

	for sub := range c.transfers {
		id := c.transfers[sub].ID
		c.transfers[sub] = s.Transfers[sub]
		c.transfers[sub].ID = id
	}
}
