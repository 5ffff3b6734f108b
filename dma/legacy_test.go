package dma

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("translateLegacy", func() {
	It("should translate a full-address normal-mode pair", func() {
		cfg := translateLegacy(0x96, 0x90)

		Expect(cfg.control).To(Equal(uint16(0x2027)))
		Expect(cfg.fullAddress).To(BeTrue())
		Expect(cfg.shortAux).To(BeFalse())
		Expect(cfg.enable).To(Equal(uint8(0b11)))
		Expect(cfg.interruptEnable).To(Equal(uint8(0)))
	})

	It("should map the full-address request sources", func() {
		sources := map[uint8]uint16{
			0b000: 0b0111,
			0b010: 0b0110,
			0b110: 0b0010,
			0b111: 0b0011,
			0b001: 0b0000,
		}

		for dts, code := range sources {
			cfg := translateLegacy(0x86, 0x80|dts)
			Expect(cfg.control & 0x000f).To(Equal(code), "dts %03b", dts)
		}
	})

	It("should translate full-address block mode", func() {
		cfg := translateLegacy(0x80|0x08|0x06|0x01, 0x80|0x08|0b011)

		Expect(cfg.control).To(Equal(uint16(0x0800 | 0x1000 | 0b1011)))
		Expect(cfg.interruptEnable).To(Equal(uint8(0b11)))
	})

	It("should map the block-mode DREQ source to code 0b1000", func() {
		cfg := translateLegacy(0x87, 0x86)

		Expect(cfg.control & 0x000f).To(Equal(uint16(0b1000)))
		Expect(cfg.control & crBlockDir).To(BeZero())
	})

	It("should translate a short-address pair per submodule", func() {
		cfg := translateLegacy(0x80|0x40|0x08|0b101, 0x80|0x20|0b110)

		Expect(cfg.fullAddress).To(BeFalse())
		Expect(cfg.control).To(Equal(
			crWordSize | 0b10101<<8 | 0x0040 | 0b00010))
		Expect(cfg.interruptEnable).To(Equal(uint8(0b01)))
		Expect(cfg.enable).To(Equal(uint8(0b11)))
	})

	It("should combine the enable bits of both registers", func() {
		Expect(translateLegacy(0x80, 0x00).enable).To(Equal(uint8(0b01)))
		Expect(translateLegacy(0x00, 0x80).enable).To(Equal(uint8(0b10)))
		Expect(translateLegacy(0x00, 0x00).enable).To(Equal(uint8(0b00)))
	})

	It("should give the same result when translated twice", func() {
		pairs := [][2]uint8{{0x96, 0x90}, {0xcd, 0xae}, {0x87, 0x8b}, {0x85, 0x87}}

		for _, p := range pairs {
			Expect(translateLegacy(p[0], p[1])).To(Equal(translateLegacy(p[0], p[1])))
		}
	})
})
