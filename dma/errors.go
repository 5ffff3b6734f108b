package dma

import (
	"errors"
	"fmt"
)

// ErrUnsupportedMode is returned when the registers select a hardware mode
// that the model cannot emulate. Hosts normally stop the simulation on it.
var ErrUnsupportedMode = errors.New("unsupported DMA configuration")

// ErrTransferInFlight is returned when a submodule is started again before
// the CPU retired its previous transfer.
var ErrTransferInFlight = errors.New("transfer still in flight")

func blockModeError(name, op string) error {
	return fmt.Errorf("%s: %s in full address/block mode: %w",
		name, op, ErrUnsupportedMode)
}
