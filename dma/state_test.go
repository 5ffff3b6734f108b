package dma

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("State", func() {
	var (
		mockCtrl *gomock.Controller
		cpu      *MockCPU
		intc     *MockInterruptController
		dmac     *Controller
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		cpu = NewMockCPU(mockCtrl)
		intc = NewMockInterruptController(mockCtrl)
		dmac = MakeBuilder().
			WithCPU(cpu).
			WithInterruptController(intc).
			Build("DMAC")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should restore a saved controller", func() {
		ch := dmac.Channel(1)
		ch.WriteMemoryAddressHigh(SubmoduleA, 0x12, 0xffff)
		ch.WriteMemoryAddressLow(SubmoduleA, 0x3456, 0xffff)
		ch.WriteIOAddress8(SubmoduleA, 0x80)
		ch.WriteExtendedCount(SubmoduleA, 0x20, 0xffff)
		Expect(ch.WriteControl(0x8100, 0xffff)).To(Succeed())
		dmac.WriteWriteEnable(0x01)

		cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(2))
		Expect(dmac.WriteBlockControl(0x0044, 0xffff)).To(Succeed())
		Expect(dmac.SetRequestLine(1, true)).To(Succeed())

		saved := dmac.SaveState()
		dmac.Reset()

		Expect(dmac.ReadBlockControl()).To(BeZero())
		Expect(ch.InFlight(SubmoduleA)).To(BeFalse())

		dmac.LoadState(saved)

		Expect(dmac.SaveState()).To(Equal(saved))
		Expect(dmac.ReadBlockControl()).To(Equal(uint16(0x0044)))
		Expect(dmac.ReadWriteEnable()).To(Equal(uint8(0x01)))
		Expect(dmac.RequestLine(1)).To(BeTrue())
		Expect(ch.InFlight(SubmoduleA)).To(BeTrue())
		Expect(ch.ReadMemoryAddressLow(SubmoduleA)).To(Equal(uint16(0x3456)))
		Expect(*dmac.Transfer(2)).To(Equal(TransferState{
			Source:     0x123456,
			Dest:       0xffff80,
			SourceStep: 2,
			Count:      0x20,
			Wide:       true,
			Suspended:  true,
			ID:         2,
		}))
	})

	It("should keep the packed ids of the channels", func() {
		s := dmac.SaveState()
		s.Channels[0].Transfers[0].ID = 3
		s.Channels[0].Transfers[1].ID = 3

		dmac.LoadState(s)

		Expect(dmac.Transfer(0).ID).To(Equal(0))
		Expect(dmac.Transfer(1).ID).To(Equal(1))
	})

	It("should clamp the two-bit fields", func() {
		s := dmac.SaveState()
		s.Channels[0].Enable = 0xff
		s.Channels[0].InterruptEnable = 0x06

		dmac.LoadState(s)

		Expect(dmac.Channel(0).Config().Enable).To(Equal(uint8(3)))
		Expect(dmac.Channel(0).Config().InterruptEnable).To(Equal(uint8(2)))
	})
})
