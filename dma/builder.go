package dma

import (
	"fmt"

	"github.com/sarchlab/h8dma/hooking"
)

// Builder can build DMA controllers.
type Builder struct {
	cpu               CPU
	intc              InterruptController
	irqBases          [NumChannels]int
	activationVectors [NumChannels][16]int
}

// MakeBuilder returns a Builder with the transfer-end interrupts of the
// H8S/2357 (DEND0A at 72, DEND1A at 74) and no peripheral activation
// sources.
func MakeBuilder() Builder {
	b := Builder{
		irqBases: [NumChannels]int{72, 74},
	}

	for ch := range b.activationVectors {
		for code := range b.activationVectors[ch] {
			b.activationVectors[ch][code] = noVector
		}
	}

	return b
}

// WithCPU sets the CPU that executes the transfers.
func (b Builder) WithCPU(cpu CPU) Builder {
	b.cpu = cpu
	return b
}

// WithInterruptController sets the interrupt controller that receives the
// transfer-end interrupts.
func (b Builder) WithInterruptController(intc InterruptController) Builder {
	b.intc = intc
	return b
}

// WithIRQBase sets the transfer-end interrupt vector of submodule A of a
// channel. Submodule B uses the next vector.
func (b Builder) WithIRQBase(channel, vector int) Builder {
	b.irqBases[channel] = vector
	return b
}

// WithActivationVectors sets which interrupt vector drives each of the 16
// activation sources of a channel. A negative entry means no peripheral
// drives the source. Missing trailing entries are left unused.
func (b Builder) WithActivationVectors(channel int, vectors ...int) Builder {
	if len(vectors) > 16 {
		panic(fmt.Sprintf("at most 16 activation vectors, got %d", len(vectors)))
	}

	for code := range b.activationVectors[channel] {
		b.activationVectors[channel][code] = noVector
	}

	for code, v := range vectors {
		if v < 0 {
			v = noVector
		}

		b.activationVectors[channel][code] = v
	}

	return b
}

// Build creates a controller with the given name. The channels are named
// after the controller.
func (b Builder) Build(name string) *Controller {
	b.mustHaveCollaborators()

	c := &Controller{
		HookableBase: hooking.NewHookableBase(),
		name:         name,
	}

	for i := range c.channels {
		ch := &Channel{
			HookableBase:      hooking.NewHookableBase(),
			name:              fmt.Sprintf("%s.Ch%d", name, i),
			index:             i,
			cpu:               b.cpu,
			intc:              b.intc,
			dmac:              c,
			irqBase:           b.irqBases[i],
			activationVectors: b.activationVectors[i],
		}
		ch.transfers[SubmoduleA].ID = PackID(i, SubmoduleA)
		ch.transfers[SubmoduleB].ID = PackID(i, SubmoduleB)

		c.channels[i] = ch
	}

	c.Reset()

	return c
}

func (b Builder) mustHaveCollaborators() {
	if b.cpu == nil {
		panic("cpu is not set")
	}

	if b.intc == nil {
		panic("interrupt controller is not set")
	}
}
