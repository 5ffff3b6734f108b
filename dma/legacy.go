package dma

// legacyConfig is what a DTCR pair means once expressed in the DMACR and
// block-control vocabulary.
type legacyConfig struct {
	control         uint16
	fullAddress     bool
	shortAux        bool
	idleSelect      uint8
	enable          uint8
	interruptEnable uint8
}

// Activation codes selected by the DTS bits of DTCRB in full-address mode.
var (
	legacyBlockSources = map[uint8]uint16{
		0b000: 0b1000, // ITU channel 0
		0b001: 0b1001, // ITU channel 1
		0b010: 0b1010, // ITU channel 2
		0b011: 0b1011, // ITU channel 3
		0b110: 0b1000, // DREQ falling edge
	}

	legacyNormalSources = map[uint8]uint16{
		0b000: 0b0111, // auto-request, burst
		0b010: 0b0110, // auto-request, cycle steal
		0b110: 0b0010, // DREQ falling edge
		0b111: 0b0011, // DREQ low level
	}
)

// Short-address control-byte codes selected by each DTCR's DTS bits.
var legacyShortSources = [8]uint16{
	0b01000, // ITU channel 0
	0b01001, // ITU channel 1
	0b01010, // ITU channel 2
	0b01011, // ITU channel 3
	0b00100, // SCI channel 0 transmit data empty
	0b10101, // SCI channel 0 receive data full
	0b00010, // DREQ falling edge, B only
	0b00011, // DREQ low level, B only
}

// translateLegacy converts the older DTCR A/B encoding into DMACR and the
// block-control flags. The auxiliary short-address flag and the idle
// selector have no DTCR equivalent and are always cleared.
func translateLegacy(a, b uint8) legacyConfig {
	var cfg legacyConfig

	if a&dtcrWordSize != 0 {
		cfg.control |= crWordSize
	}
	cfg.control |= uint16(a&dtcrIncrement) >> 4 << 13
	cfg.control |= uint16(b&dtcrIncrement) >> 4 << 5

	if a&dtcrEnable != 0 {
		cfg.enable |= 0b01
	}
	if b&dtcrEnable != 0 {
		cfg.enable |= 0b10
	}

	cfg.fullAddress = a&dtcrFullAddress == dtcrFullAddress
	if cfg.fullAddress {
		translateLegacyFull(a, b, &cfg)
	} else {
		translateLegacyShort(a, b, &cfg)
	}

	return cfg
}

func translateLegacyFull(a, b uint8, cfg *legacyConfig) {
	if a&dtcrInterrupt != 0 {
		cfg.interruptEnable = 0b11
	}

	if a&dtcrBlock == 0 {
		cfg.control |= legacyNormalSources[b&dtcrSelect]
		return
	}

	cfg.control |= crBlockEnable
	if b&dtcrBlockDir != 0 {
		cfg.control |= crBlockDir
	}
	cfg.control |= legacyBlockSources[b&dtcrSelect]
}

func translateLegacyShort(a, b uint8, cfg *legacyConfig) {
	if a&dtcrInterrupt != 0 {
		cfg.interruptEnable |= 0b01
	}
	if b&dtcrInterrupt != 0 {
		cfg.interruptEnable |= 0b10
	}

	cfg.control |= legacyShortSources[a&dtcrSelect] << 8
	cfg.control |= legacyShortSources[b&dtcrSelect]
}
