package dma

// CPU is the bus master that executes the transfers.
type CPU interface {
	// SetCurrentTransfer hands over the transfer that a submodule has just
	// started. The state stays owned by the channel.
	SetCurrentTransfer(state *TransferState)

	// SetEndSignal drives the transfer-end output of a channel.
	SetEndSignal(channel int, asserted bool)
}

// InterruptController receives the transfer-end interrupts.
type InterruptController interface {
	RaiseInternalInterrupt(vector int)
}

type enableClearer interface {
	ClearEnable(id int)
}
