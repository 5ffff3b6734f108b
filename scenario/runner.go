package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/sarchlab/h8dma/dma"
)

// ErrExpectationFailed is returned when an expect step does not hold.
var ErrExpectationFailed = errors.New("expectation failed")

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

// A Runner executes scenarios on a system.
type Runner struct {
	System *System

	// Lock, if set, is held while each step runs.
	Lock sync.Locker

	// AfterStep, if set, is called after each successful step with the
	// number of units the step moved.
	AfterStep func(index int, step Step, units int)

	// KeepMemory skips the memory blocks of the scenario, as when the
	// system was restored from a checkpoint.
	KeepMemory bool
}

// Run loads the scenario memory and executes its steps in order. It stops
// at the first failing step.
func (r *Runner) Run(s *Scenario) error {
	lock := r.Lock
	if lock == nil {
		lock = noLock{}
	}

	if !r.KeepMemory {
		lock.Lock()
		err := r.loadMemory(s)
		lock.Unlock()

		if err != nil {
			return err
		}
	}

	for i, step := range s.Steps {
		lock.Lock()
		units, err := r.runStep(step)
		lock.Unlock()

		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Kind(), err)
		}

		if r.AfterStep != nil {
			r.AfterStep(i, step, units)
		}
	}

	return nil
}

func (r *Runner) loadMemory(s *Scenario) error {
	for i, b := range s.Memory {
		if err := r.System.Bus.Memory().Write(b.Addr, b.Bytes()); err != nil {
			return fmt.Errorf("memory block %d: %w", i, err)
		}
	}

	return nil
}

func (r *Runner) runStep(step Step) (int, error) {
	sys := r.System

	switch {
	case step.Write != nil:
		reg, err := dma.LookupRegister(step.Write.Reg)
		if err != nil {
			return 0, err
		}

		return 0, sys.Controller.WriteRegister(reg, step.Write.Value, step.Write.MaskOrAll())
	case step.DREQ != nil:
		return 0, sys.Controller.SetRequestLine(step.DREQ.Line, step.DREQ.Level)
	case step.Vector != nil:
		_, err := sys.Controller.TriggerByVector(dma.Vector(*step.Vector))
		return 0, err
	case step.Run != nil:
		return sys.Bus.Run(*step.Run)
	case step.Expect != nil:
		return 0, r.expectRegister(*step.Expect)
	case step.ExpectMemory != nil:
		return 0, r.expectMemory(*step.ExpectMemory)
	case step.ExpectInterrupts != nil:
		return 0, r.expectInterrupts(step.ExpectInterrupts)
	case step.Reset:
		sys.Reset()
		return 0, nil
	}

	return 0, fmt.Errorf("%w: empty step", ErrInvalidScenario)
}

func (r *Runner) expectRegister(want RegValue) error {
	reg, err := dma.LookupRegister(want.Reg)
	if err != nil {
		return err
	}

	mask := want.MaskOrAll()
	got := r.System.Controller.ReadRegister(reg)
	if got&mask != want.Value&mask {
		return fmt.Errorf("%w: %s is %04x, want %04x (mask %04x)",
			ErrExpectationFailed, reg, got, want.Value, mask)
	}

	return nil
}

func (r *Runner) expectMemory(want MemoryBlock) error {
	wantBytes := want.Bytes()

	got, err := r.System.Bus.Memory().Read(want.Addr, uint32(len(wantBytes)))
	if err != nil {
		return err
	}

	if !bytes.Equal(got, wantBytes) {
		return fmt.Errorf("%w: memory at %06x is % x, want % x",
			ErrExpectationFailed, want.Addr, got, wantBytes)
	}

	return nil
}

// expectInterrupts compares and acknowledges every pending interrupt.
func (r *Runner) expectInterrupts(want []int) error {
	latch := r.System.Latch
	got := latch.Pending()

	for {
		if _, ok := latch.Acknowledge(); !ok {
			break
		}
	}

	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: interrupts %v, want %v",
			ErrExpectationFailed, got, want)
	}

	return nil
}
