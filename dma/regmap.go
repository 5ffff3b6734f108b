package dma

import (
	"fmt"
	"strings"
)

// RegisterKind is the function of a register.
type RegisterKind int

// Register kinds.
const (
	RegBlockControl RegisterKind = iota
	RegWriteEnable
	RegTransferControl
	RegMemoryAddressHigh
	RegMemoryAddressLow
	RegIOAddress
	RegIOAddress8
	RegExtendedCount
	RegControl
	RegLegacyControl
)

// Register addresses one register of the controller. Channel and Sub are
// ignored for the controller-level kinds, and Sub for DMACR.
type Register struct {
	Kind    RegisterKind
	Channel int
	Sub     Submodule
}

type registerInfo struct {
	prefix     string
	suffix     string
	width      int
	perChannel bool
	perSub     bool
}

var registerInfos = map[RegisterKind]registerInfo{
	RegBlockControl:      {prefix: "DMABCR", width: 16},
	RegWriteEnable:       {prefix: "DMAWER", width: 8},
	RegTransferControl:   {prefix: "DMATCR", width: 8},
	RegMemoryAddressHigh: {prefix: "MAR", suffix: "H", width: 16, perChannel: true, perSub: true},
	RegMemoryAddressLow:  {prefix: "MAR", suffix: "L", width: 16, perChannel: true, perSub: true},
	RegIOAddress:         {prefix: "IOAR", width: 16, perChannel: true, perSub: true},
	RegIOAddress8:        {prefix: "IOAR", suffix: "8", width: 8, perChannel: true, perSub: true},
	RegExtendedCount:     {prefix: "ETCR", width: 16, perChannel: true, perSub: true},
	RegControl:           {prefix: "DMACR", width: 16, perChannel: true},
	RegLegacyControl:     {prefix: "DTCR", width: 8, perChannel: true, perSub: true},
}

// Width returns the register width in bits.
func (r Register) Width() int {
	return registerInfos[r.Kind].width
}

func (r Register) String() string {
	info := registerInfos[r.Kind]

	name := info.prefix
	if info.perChannel {
		name += fmt.Sprint(r.Channel)
	}
	if info.perSub {
		name += r.Sub.String()
	}

	return name + info.suffix
}

// Registers lists every register of the controller.
func Registers() []Register {
	regs := []Register{
		{Kind: RegBlockControl},
		{Kind: RegWriteEnable},
		{Kind: RegTransferControl},
	}

	kinds := []RegisterKind{
		RegMemoryAddressHigh,
		RegMemoryAddressLow,
		RegIOAddress,
		RegIOAddress8,
		RegExtendedCount,
		RegLegacyControl,
	}

	for ch := 0; ch < NumChannels; ch++ {
		for _, sub := range []Submodule{SubmoduleA, SubmoduleB} {
			for _, kind := range kinds {
				regs = append(regs, Register{Kind: kind, Channel: ch, Sub: sub})
			}
		}

		regs = append(regs, Register{Kind: RegControl, Channel: ch})
	}

	return regs
}

// LookupRegister finds a register by its name, such as "MAR0AH" or
// "DMABCR". Names are case-insensitive.
func LookupRegister(name string) (Register, error) {
	upper := strings.ToUpper(name)
	for _, r := range Registers() {
		if r.String() == upper {
			return r, nil
		}
	}

	return Register{}, fmt.Errorf("unknown register %q", name)
}

// ReadRegister reads a register by address.
func (c *Controller) ReadRegister(r Register) uint16 {
	ch := c.channels[r.Channel&1]

	switch r.Kind {
	case RegBlockControl:
		return c.ReadBlockControl()
	case RegWriteEnable:
		return uint16(c.ReadWriteEnable())
	case RegTransferControl:
		return uint16(c.ReadTransferControl())
	case RegMemoryAddressHigh:
		return ch.ReadMemoryAddressHigh(r.Sub)
	case RegMemoryAddressLow:
		return ch.ReadMemoryAddressLow(r.Sub)
	case RegIOAddress:
		return ch.ReadIOAddress(r.Sub)
	case RegIOAddress8:
		return uint16(ch.ReadIOAddress8(r.Sub))
	case RegExtendedCount:
		return ch.ReadExtendedCount(r.Sub)
	case RegControl:
		return ch.ReadControl()
	case RegLegacyControl:
		return uint16(ch.ReadLegacyControl(r.Sub))
	}

	panic(fmt.Sprintf("unknown register kind %d", r.Kind))
}

// WriteRegister writes a register by address. The mask selects the bits
// that are written; 8-bit registers only take full-width writes and ignore
// it.
func (c *Controller) WriteRegister(r Register, value, mask uint16) error {
	ch := c.channels[r.Channel&1]

	switch r.Kind {
	case RegBlockControl:
		return c.WriteBlockControl(value, mask)
	case RegWriteEnable:
		c.WriteWriteEnable(uint8(value))
	case RegTransferControl:
		c.WriteTransferControl(uint8(value))
	case RegMemoryAddressHigh:
		ch.WriteMemoryAddressHigh(r.Sub, value, mask)
	case RegMemoryAddressLow:
		ch.WriteMemoryAddressLow(r.Sub, value, mask)
	case RegIOAddress:
		ch.WriteIOAddress(r.Sub, value, mask)
	case RegIOAddress8:
		ch.WriteIOAddress8(r.Sub, uint8(value))
	case RegExtendedCount:
		ch.WriteExtendedCount(r.Sub, value, mask)
	case RegControl:
		return ch.WriteControl(value, mask)
	case RegLegacyControl:
		return ch.WriteLegacyControl(r.Sub, uint8(value))
	default:
		panic(fmt.Sprintf("unknown register kind %d", r.Kind))
	}

	return nil
}
