package scenario

import (
	"github.com/sarchlab/h8dma/busmaster"
	"github.com/sarchlab/h8dma/dma"
)

// A System is a controller wired to a bus master and an interrupt latch.
type System struct {
	Controller *dma.Controller
	Bus        *busmaster.Bus
	Latch      *busmaster.InterruptLatch
}

// NewSystem builds a system from a controller configuration.
func NewSystem(cfg ControllerConfig) *System {
	bus := busmaster.NewBus("Bus", busmaster.NewStorage())
	latch := &busmaster.InterruptLatch{}

	b := dma.MakeBuilder().
		WithCPU(bus).
		WithInterruptController(latch)

	for ch, base := range cfg.IRQBase {
		b = b.WithIRQBase(ch, base)
	}

	for ch, vectors := range cfg.ActivationVectors {
		b = b.WithActivationVectors(ch, vectors...)
	}

	dmac := b.Build("DMAC")
	bus.Connect(dmac)

	return &System{
		Controller: dmac,
		Bus:        bus,
		Latch:      latch,
	}
}

// Reattach hands every in-flight transfer of the controller to the bus. It
// is needed after dma.Controller.LoadState, which does not notify the CPU.
func (s *System) Reattach() {
	s.Bus.Reset()

	for id := 0; id < dma.NumChannels*2; id++ {
		ch, sub := dma.UnpackID(id)
		if s.Controller.Channel(ch).InFlight(sub) {
			s.Bus.SetCurrentTransfer(s.Controller.Transfer(id))
		}
	}
}

// Reset resets the controller and drops the transfers held by the bus.
func (s *System) Reset() {
	s.Controller.Reset()
	s.Bus.Reset()
}
