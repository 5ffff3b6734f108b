package busmaster

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// AddressMask limits addresses to the 24-bit address space.
const AddressMask = 0xffffff

// ErrOutOfRange is returned when an access crosses the end of the address
// space.
var ErrOutOfRange = errors.New("access beyond the 24-bit address space")

// A Storage keeps the bytes of the address space.
//
// The storage is managed in units. Units that are never touched by Read or
// Write are not allocated, so the whole 16 MiB space costs nothing until it
// is used.
type Storage struct {
	unitSize uint32
	data     map[uint32][]byte
}

// NewStorage creates an empty storage covering the 24-bit address space.
func NewStorage() *Storage {
	return &Storage{
		unitSize: 4096,
		data:     make(map[uint32][]byte),
	}
}

func (s *Storage) parseAddress(addr uint32) (baseAddr, inUnitAddr uint32) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) unit(baseAddr uint32, create bool) []byte {
	unit, ok := s.data[baseAddr]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) checkRange(addr, length uint32) error {
	if uint64(addr)+uint64(length) > AddressMask+1 {
		return ErrOutOfRange
	}

	return nil
}

// Read returns length bytes starting at addr. Untouched bytes read as zero.
func (s *Storage) Read(addr, length uint32) ([]byte, error) {
	if err := s.checkRange(addr, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	offset := uint32(0)

	for offset < length {
		curr := addr + offset
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(length-offset, s.unitSize-inUnitAddr)

		if unit := s.unit(baseAddr, false); unit != nil {
			copy(res[offset:offset+n], unit[inUnitAddr:inUnitAddr+n])
		}

		offset += n
	}

	return res, nil
}

// Write stores data starting at addr.
func (s *Storage) Write(addr uint32, data []byte) error {
	length := uint32(len(data))
	if err := s.checkRange(addr, length); err != nil {
		return err
	}

	offset := uint32(0)
	for offset < length {
		curr := addr + offset
		baseAddr, inUnitAddr := s.parseAddress(curr)
		n := min(length-offset, s.unitSize-inUnitAddr)

		unit := s.unit(baseAddr, true)
		copy(unit[inUnitAddr:inUnitAddr+n], data[offset:offset+n])

		offset += n
	}

	return nil
}

// ReadUnit reads one byte, or one big-endian word when wide is set.
func (s *Storage) ReadUnit(addr uint32, wide bool) (uint16, error) {
	if !wide {
		b, err := s.Read(addr, 1)
		if err != nil {
			return 0, err
		}

		return uint16(b[0]), nil
	}

	b, err := s.Read(addr, 2)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(b), nil
}

// WriteUnit writes one byte, or one big-endian word when wide is set.
func (s *Storage) WriteUnit(addr uint32, wide bool, value uint16) error {
	if !wide {
		return s.Write(addr, []byte{byte(value)})
	}

	return s.Write(addr, binary.BigEndian.AppendUint16(nil, value))
}

// UnitsAllocated returns the number of units that have been written.
func (s *Storage) UnitsAllocated() int {
	return len(s.data)
}

// Snapshot returns a copy of the allocated units, keyed by base address.
func (s *Storage) Snapshot() map[uint32][]byte {
	units := make(map[uint32][]byte, len(s.data))
	for base, unit := range s.data {
		units[base] = append([]byte(nil), unit...)
	}

	return units
}

// LoadSnapshot replaces the whole content with a snapshot taken by
// Snapshot.
func (s *Storage) LoadSnapshot(units map[uint32][]byte) error {
	data := make(map[uint32][]byte, len(units))
	for base, unit := range units {
		if base%s.unitSize != 0 || uint32(len(unit)) != s.unitSize {
			return fmt.Errorf("bad storage unit at %06x", base)
		}

		if err := s.checkRange(base, s.unitSize); err != nil {
			return err
		}

		data[base] = append([]byte(nil), unit...)
	}

	s.data = data

	return nil
}
