package cmd

import (
	"fmt"
	"os"

	"github.com/sarchlab/h8dma/busmaster"
	"github.com/sarchlab/h8dma/checkpoint"
	"github.com/sarchlab/h8dma/dma"
	"github.com/sarchlab/h8dma/scenario"
)

// Checkpoint keys.
const (
	controllerKey = "dma.controller"
	memoryKey     = "bus.memory"
	busKey        = "bus.state"
	latchKey      = "bus.latch"
)

func checkpointStore(sys *scenario.System) (*checkpoint.Store, error) {
	store := checkpoint.NewStore()

	if err := store.Register(controllerKey, sys.Controller.SaveState()); err != nil {
		return nil, err
	}

	if err := store.Register(memoryKey, sys.Bus.Memory().Snapshot()); err != nil {
		return nil, err
	}

	if err := store.Register(busKey, sys.Bus.SaveState()); err != nil {
		return nil, err
	}

	if err := store.Register(latchKey, sys.Latch.SaveState()); err != nil {
		return nil, err
	}

	return store, nil
}

func saveCheckpoint(sys *scenario.System, path string) error {
	store, err := checkpointStore(sys)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := store.Save(f); err != nil {
		f.Close()
		return fmt.Errorf("saving checkpoint %s: %w", path, err)
	}

	return f.Close()
}

// restoreCheckpoint loads the controller, memory, bus counters and latched
// interrupts of a checkpoint and hands the restored in-flight transfers back
// to the bus.
func restoreCheckpoint(sys *scenario.System, path string) error {
	store, err := checkpointStore(sys)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := store.Restore(f); err != nil {
		return fmt.Errorf("restoring checkpoint %s: %w", path, err)
	}

	state, err := store.Load(controllerKey)
	if err != nil {
		return err
	}

	memory, err := store.Load(memoryKey)
	if err != nil {
		return err
	}

	bus, err := store.Load(busKey)
	if err != nil {
		return err
	}

	latch, err := store.Load(latchKey)
	if err != nil {
		return err
	}

	if err := sys.Bus.Memory().LoadSnapshot(memory.(map[uint32][]byte)); err != nil {
		return err
	}

	sys.Controller.LoadState(state.(dma.State))
	sys.Reattach()
	sys.Bus.LoadState(bus.(busmaster.BusState))
	sys.Latch.LoadState(latch.(busmaster.LatchState))

	return nil
}
