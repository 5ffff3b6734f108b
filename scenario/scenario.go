// Package scenario describes DMA test scenarios in YAML and runs them
// against a controller wired to a bus master.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/h8dma/dma"
)

// ErrInvalidScenario is returned for scenario files that cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// A Scenario is a controller configuration, initial memory content, and a
// list of steps.
type Scenario struct {
	Name       string           `yaml:"name"`
	Controller ControllerConfig `yaml:"controller"`
	Memory     []MemoryBlock    `yaml:"memory"`
	Steps      []Step           `yaml:"steps"`
}

// ControllerConfig holds the build-time options of the controller.
type ControllerConfig struct {
	IRQBase           []int         `yaml:"irq_base"`
	ActivationVectors map[int][]int `yaml:"activation_vectors"`
}

// MemoryBlock is a run of bytes at an address.
type MemoryBlock struct {
	Addr uint32 `yaml:"addr"`
	Data []int  `yaml:"data"`
}

// Bytes returns the data as bytes.
func (b MemoryBlock) Bytes() []byte {
	out := make([]byte, len(b.Data))
	for i, v := range b.Data {
		out[i] = byte(v)
	}

	return out
}

// RegValue names a register and a value. Mask defaults to all bits.
type RegValue struct {
	Reg   string  `yaml:"reg"`
	Value uint16  `yaml:"value"`
	Mask  *uint16 `yaml:"mask"`
}

// MaskOrAll returns the mask, or 0xffff if none is given.
func (r RegValue) MaskOrAll() uint16 {
	if r.Mask == nil {
		return 0xffff
	}

	return *r.Mask
}

// LineLevel sets the level of a DREQ input.
type LineLevel struct {
	Line  int  `yaml:"line"`
	Level bool `yaml:"level"`
}

// A Step is one action of a scenario. Exactly one field is set.
type Step struct {
	Write            *RegValue    `yaml:"write"`
	DREQ             *LineLevel   `yaml:"dreq"`
	Vector           *int         `yaml:"vector"`
	Run              *int         `yaml:"run"`
	Expect           *RegValue    `yaml:"expect"`
	ExpectMemory     *MemoryBlock `yaml:"expect_memory"`
	ExpectInterrupts []int        `yaml:"expect_interrupts"`
	Reset            bool         `yaml:"reset"`
}

// Kind names the action of the step.
func (s Step) Kind() string {
	kinds := s.kinds()
	if len(kinds) != 1 {
		return "invalid"
	}

	return kinds[0]
}

func (s Step) kinds() []string {
	var kinds []string

	if s.Write != nil {
		kinds = append(kinds, "write")
	}
	if s.DREQ != nil {
		kinds = append(kinds, "dreq")
	}
	if s.Vector != nil {
		kinds = append(kinds, "vector")
	}
	if s.Run != nil {
		kinds = append(kinds, "run")
	}
	if s.Expect != nil {
		kinds = append(kinds, "expect")
	}
	if s.ExpectMemory != nil {
		kinds = append(kinds, "expect_memory")
	}
	if s.ExpectInterrupts != nil {
		kinds = append(kinds, "expect_interrupts")
	}
	if s.Reset {
		kinds = append(kinds, "reset")
	}

	return kinds
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if s.Name == "" {
		s.Name = path
	}

	return s, nil
}

// Validate checks that every step can be run.
func (s *Scenario) Validate() error {
	if len(s.Controller.IRQBase) > dma.NumChannels {
		return fmt.Errorf("%w: %d irq bases for %d channels",
			ErrInvalidScenario, len(s.Controller.IRQBase), dma.NumChannels)
	}

	for ch, vectors := range s.Controller.ActivationVectors {
		if ch < 0 || ch >= dma.NumChannels || len(vectors) > 16 {
			return fmt.Errorf("%w: bad activation vectors for channel %d",
				ErrInvalidScenario, ch)
		}
	}

	for i, b := range s.Memory {
		if err := checkBlock(b); err != nil {
			return fmt.Errorf("%w: memory block %d: %v", ErrInvalidScenario, i, err)
		}
	}

	for i, step := range s.Steps {
		if err := checkStep(step); err != nil {
			return fmt.Errorf("%w: step %d: %v", ErrInvalidScenario, i, err)
		}
	}

	return nil
}

func checkBlock(b MemoryBlock) error {
	for _, v := range b.Data {
		if v < 0 || v > 0xff {
			return fmt.Errorf("byte value %d out of range", v)
		}
	}

	return nil
}

func checkStep(step Step) error {
	kinds := step.kinds()
	if len(kinds) != 1 {
		return fmt.Errorf("want exactly one action, got %v", kinds)
	}

	switch {
	case step.Write != nil:
		_, err := dma.LookupRegister(step.Write.Reg)
		return err
	case step.Expect != nil:
		_, err := dma.LookupRegister(step.Expect.Reg)
		return err
	case step.ExpectMemory != nil:
		return checkBlock(*step.ExpectMemory)
	case step.Run != nil && *step.Run < 0:
		return fmt.Errorf("negative unit count %d", *step.Run)
	}

	return nil
}
