package dma

import (
	"fmt"

	"github.com/sarchlab/h8dma/hooking"
)

// Hook positions raised by the controller and its channels.
var (
	// HookPosRegRead fires on every register read. Item is a RegAccess.
	HookPosRegRead = &hooking.HookPos{Name: "RegRead"}

	// HookPosRegWrite fires on every register write, after the write took
	// effect. Item is a RegAccess.
	HookPosRegWrite = &hooking.HookPos{Name: "RegWrite"}

	// HookPosConfigure fires when a channel re-derives its mode flags. Item
	// is a Config.
	HookPosConfigure = &hooking.HookPos{Name: "Configure"}

	// HookPosTransferStart fires when a submodule hands a new transfer to
	// the CPU. Item is a copy of the TransferState, Detail the Mode.
	HookPosTransferStart = &hooking.HookPos{Name: "TransferStart"}

	// HookPosTransferResume fires when a request event lifts the suspension
	// of a primed transfer. Item is a copy of the TransferState, Detail the
	// Vector.
	HookPosTransferResume = &hooking.HookPos{Name: "TransferResume"}

	// HookPosTransferLastUnit fires when the CPU reaches the last unit.
	HookPosTransferLastUnit = &hooking.HookPos{Name: "TransferLastUnit"}

	// HookPosTransferReload fires when a repeat-mode submodule reloads.
	HookPosTransferReload = &hooking.HookPos{Name: "TransferReload"}

	// HookPosTransferDone fires when a transfer completes and the submodule
	// is disabled.
	HookPosTransferDone = &hooking.HookPos{Name: "TransferDone"}

	// HookPosInterrupt fires before an interrupt is raised. Item is the
	// interrupt vector.
	HookPosInterrupt = &hooking.HookPos{Name: "Interrupt"}

	// HookPosWarning fires on recoverable conditions. Item is an error.
	HookPosWarning = &hooking.HookPos{Name: "Warning"}
)

// RegAccess describes one register access.
type RegAccess struct {
	Reg   string
	Value uint32
	Width int
}

func (a RegAccess) String() string {
	return fmt.Sprintf("%s=%0*x", a.Reg, a.Width/4, a.Value)
}

// Config is the channel-level slice of the block-control register.
type Config struct {
	FullAddress     bool
	ShortAux        bool
	IdleSelect      uint8
	Enable          uint8
	InterruptEnable uint8
}

func (c Config) String() string {
	return fmt.Sprintf("fae=%t sae=%t dta=%d dte=%d dtie=%d",
		c.FullAddress, c.ShortAux, c.IdleSelect, c.Enable, c.InterruptEnable)
}

// Mode names the way a submodule runs its transfer.
type Mode string

// Transfer modes.
const (
	ModeNormal     Mode = "normal"
	ModeBlock      Mode = "block"
	ModeSequential Mode = "sequential"
	ModeIdle       Mode = "idle"
	ModeRepeat     Mode = "repeat"
)

func invoke(domain hooking.Hookable, pos *hooking.HookPos, item, detail any) {
	if domain.NumHooks() == 0 {
		return
	}

	domain.InvokeHook(hooking.HookCtx{
		Domain: domain,
		Pos:    pos,
		Item:   item,
		Detail: detail,
	})
}
