package dma

// mergeMasked replaces the bits of current selected by mask with the
// corresponding bits of value.
func mergeMasked(current, value, mask uint16) uint16 {
	return current&^mask | value&mask
}

// DMACR bits, full-address layout.
const (
	crWordSize     uint16 = 0x8000
	crSourceDec    uint16 = 0x4000
	crSourceInc    uint16 = 0x2000
	crBlockDir     uint16 = 0x1000
	crBlockEnable  uint16 = 0x0800
	crDestDec      uint16 = 0x0040
	crDestInc      uint16 = 0x0020
	crAutoRequest  uint16 = 0x0006
	crRequestMask  uint16 = 0x0007
	crActivationFA uint16 = 0x000f
)

// Per-submodule control byte, short-address layout. Submodule A uses the
// high byte of DMACR, submodule B the low byte.
const (
	scrWordSize   uint8 = 0x80
	scrDecrement  uint8 = 0x40
	scrRepeat     uint8 = 0x20
	scrIOSource   uint8 = 0x10
	scrActivation uint8 = 0x0f
)

// Request-source codes, compared on the low three DMACR bits.
const (
	requestEdgeCode  uint16 = 0b010
	requestLevelCode uint16 = 0b011
)

// DTCR bits.
const (
	dtcrEnable      uint8 = 0x80
	dtcrWordSize    uint8 = 0x40
	dtcrIncrement   uint8 = 0x30
	dtcrInterrupt   uint8 = 0x08
	dtcrBlockDir    uint8 = 0x08
	dtcrFullAddress uint8 = 0x06
	dtcrBlock       uint8 = 0x01
	dtcrSelect      uint8 = 0x07
)

const (
	ioBase    uint32 = 0xff0000
	maxCount  uint32 = 0x10000
	maxRepeat uint32 = 0x100
)

func fullCount(etcr uint16) uint32 {
	if etcr == 0 {
		return maxCount
	}

	return uint32(etcr)
}

func repeatCount(etcr uint16) uint32 {
	if etcr&0x00ff == 0 {
		return maxRepeat
	}

	return uint32(etcr & 0x00ff)
}

func addressStep(enabled, decrement bool, step int32) int32 {
	switch {
	case !enabled:
		return 0
	case decrement:
		return -step
	default:
		return step
	}
}
