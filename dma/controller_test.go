package dma

import (
	"bytes"
	"log"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/h8dma/hooking"
)

var _ = Describe("Controller", func() {
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

		vectors := []int{-1, -1, -1, -1, -1, -1, -1, -1, 32}
		dmac = MakeBuilder().
			WithCPU(cpu).
			WithInterruptController(intc).
			WithActivationVectors(0, vectors...).
			WithActivationVectors(1, vectors...).
			Build("DMAC")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic when built without a CPU", func() {
		Expect(func() {
			MakeBuilder().WithInterruptController(intc).Build("DMAC")
		}).To(Panic())
	})

	It("should name the channels after the controller", func() {
		Expect(dmac.Name()).To(Equal("DMAC"))
		Expect(dmac.Channel(1).Name()).To(Equal("DMAC.Ch1"))
		Expect(dmac.Domains()).To(HaveLen(3))
	})

	It("should pack submodule ids", func() {
		Expect(dmac.Transfer(0)).To(BeIdenticalTo(dmac.Channel(0).Transfer(SubmoduleA)))
		Expect(dmac.Transfer(1)).To(BeIdenticalTo(dmac.Channel(0).Transfer(SubmoduleB)))
		Expect(dmac.Transfer(2)).To(BeIdenticalTo(dmac.Channel(1).Transfer(SubmoduleA)))
		Expect(dmac.Transfer(3)).To(BeIdenticalTo(dmac.Channel(1).Transfer(SubmoduleB)))

		for id := 0; id < 4; id++ {
			t := dmac.Transfer(id)
			Expect(t.ID).To(Equal(id))
			Expect(PackID(t.Channel(), t.Submodule())).To(Equal(id))
		}
	})

	It("should clear the enable bit of a packed id", func() {
		Expect(dmac.WriteBlockControl(0xc000, 0xffff)).To(Succeed())
		dmac.blockControl |= 0x00f0

		dmac.ClearEnable(3)
		Expect(dmac.ReadBlockControl()).To(Equal(uint16(0xc070)))

		dmac.ClearEnable(0)
		Expect(dmac.ReadBlockControl()).To(Equal(uint16(0xc060)))
	})

	It("should store write-enable and transfer-control values", func() {
		dmac.WriteWriteEnable(0x0f)
		dmac.WriteTransferControl(0xc0)

		Expect(dmac.ReadWriteEnable()).To(Equal(uint8(0x0f)))
		Expect(dmac.ReadTransferControl()).To(Equal(uint8(0xc0)))
	})

	It("should start channel 0 before channel 1", func() {
		gomock.InOrder(
			cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(0)),
			cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(2)),
		)

		Expect(dmac.WriteBlockControl(0x0050, 0xffff)).To(Succeed())
	})

	It("should report block mode on both channels", func() {
		Expect(dmac.Channel(0).WriteControl(0x0800, 0xffff)).To(Succeed())
		Expect(dmac.Channel(1).WriteControl(0x0800, 0xffff)).To(Succeed())

		err := dmac.WriteBlockControl(0xc0f0, 0xffff)

		Expect(err).To(MatchError(ErrUnsupportedMode))
		Expect(err.Error()).To(ContainSubstring("DMAC.Ch0"))
		Expect(err.Error()).To(ContainSubstring("DMAC.Ch1"))
	})

	Context("request lines", func() {
		BeforeEach(func() {
			cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(0))
		})

		It("should resume edge-triggered transfers on the rising edge only", func() {
			Expect(dmac.Channel(0).WriteControl(0x2022, 0xffff)).To(Succeed())
			Expect(dmac.WriteBlockControl(0x4030, 0xffff)).To(Succeed())
			t := dmac.Transfer(0)

			Expect(dmac.SetRequestLine(0, true)).To(Succeed())
			Expect(t.Suspended).To(BeFalse())
			Expect(dmac.RequestLine(0)).To(BeTrue())

			t.Suspended = true
			Expect(dmac.SetRequestLine(0, true)).To(Succeed())
			Expect(t.Suspended).To(BeTrue())

			Expect(dmac.SetRequestLine(0, false)).To(Succeed())
			Expect(dmac.SetRequestLine(0, true)).To(Succeed())
			Expect(t.Suspended).To(BeFalse())
		})

		It("should resume level-triggered transfers while the line is held", func() {
			Expect(dmac.Channel(0).WriteControl(0x2023, 0xffff)).To(Succeed())
			Expect(dmac.WriteBlockControl(0x4030, 0xffff)).To(Succeed())
			t := dmac.Transfer(0)

			Expect(dmac.SetRequestLine(0, true)).To(Succeed())
			Expect(t.Suspended).To(BeFalse())

			t.Suspended = true
			Expect(dmac.SetRequestLine(0, true)).To(Succeed())
			Expect(t.Suspended).To(BeFalse())

			t.Suspended = true
			Expect(dmac.SetRequestLine(0, false)).To(Succeed())
			Expect(t.Suspended).To(BeTrue())
		})

		It("should route each line to its own channel", func() {
			Expect(dmac.Channel(0).WriteControl(0x2023, 0xffff)).To(Succeed())
			Expect(dmac.WriteBlockControl(0x4030, 0xffff)).To(Succeed())

			Expect(dmac.SetRequestLine(1, true)).To(Succeed())
			Expect(dmac.Transfer(0).Suspended).To(BeTrue())
		})
	})

	It("should warn about unsupported request lines", func() {
		var warning error
		hook := NewMockHook(mockCtrl)
		dmac.AcceptHook(hook)
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosWarning))
				warning = ctx.Item.(error)
			})

		Expect(dmac.SetRequestLine(2, true)).To(Succeed())
		Expect(warning).To(MatchError(ContainSubstring("input line 2 not supported")))
		Expect(dmac.RequestLine(2)).To(BeFalse())
	})

	It("should resume both channels listening to the same vector", func() {
		Expect(dmac.Channel(0).WriteControl(0x0008, 0xffff)).To(Succeed())
		Expect(dmac.Channel(1).WriteControl(0x0008, 0xffff)).To(Succeed())

		cpu.EXPECT().SetCurrentTransfer(gomock.Any()).Times(2)
		Expect(dmac.WriteBlockControl(0xc0f0, 0xffff)).To(Succeed())

		Expect(dmac.TriggerByVector(33)).To(BeFalse())
		Expect(dmac.TriggerByVector(32)).To(BeTrue())

		Expect(dmac.Transfer(0).Suspended).To(BeFalse())
		Expect(dmac.Transfer(2).Suspended).To(BeFalse())
	})

	It("should finish a one-shot transfer on channel 1", func() {
		ch := dmac.Channel(1)
		ch.WriteMemoryAddressLow(SubmoduleB, 0x8000, 0xffff)
		ch.WriteIOAddress8(SubmoduleB, 0x60)
		ch.WriteExtendedCount(SubmoduleB, 2, 0xffff)

		cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(3))
		Expect(dmac.WriteBlockControl(0x0088, 0xffff)).To(Succeed())
		Expect(dmac.Transfer(3).Count).To(Equal(uint32(2)))

		cpu.EXPECT().SetEndSignal(1, true)
		dmac.NotifyLastUnit(3)

		gomock.InOrder(
			cpu.EXPECT().SetEndSignal(1, false),
			intc.EXPECT().RaiseInternalInterrupt(75),
		)
		Expect(dmac.NotifyTransferDone(3)).To(Succeed())

		Expect(dmac.ReadBlockControl()).To(Equal(uint16(0x0008)))
		Expect(ch.Enabled(SubmoduleB)).To(BeFalse())
		Expect(ch.InFlight(SubmoduleB)).To(BeFalse())
	})

	Context("legacy registers", func() {
		It("should only start once both DTCRs are enabled", func() {
			ch := dmac.Channel(0)
			ch.WriteMemoryAddressLow(SubmoduleA, 0x1000, 0xffff)
			ch.WriteMemoryAddressLow(SubmoduleB, 0x2000, 0xffff)
			ch.WriteExtendedCount(SubmoduleA, 8, 0xffff)

			Expect(ch.WriteLegacyControl(SubmoduleA, 0x96)).To(Succeed())
			Expect(ch.InFlight(SubmoduleA)).To(BeFalse())

			cpu.EXPECT().SetCurrentTransfer(dmac.Transfer(0)).Times(1)
			Expect(ch.WriteLegacyControl(SubmoduleB, 0x90)).To(Succeed())

			Expect(ch.ReadControl()).To(Equal(uint16(0x2027)))
			Expect(ch.FullAddress()).To(BeTrue())
			Expect(dmac.Transfer(0).AutoRequest).To(BeTrue())
			Expect(dmac.Transfer(0).Count).To(Equal(uint32(8)))
		})

		It("should clear the DTCR enable bit on completion", func() {
			ch := dmac.Channel(0)
			Expect(ch.WriteLegacyControl(SubmoduleA, 0x96)).To(Succeed())

			cpu.EXPECT().SetCurrentTransfer(gomock.Any())
			Expect(ch.WriteLegacyControl(SubmoduleB, 0x90)).To(Succeed())

			Expect(dmac.NotifyTransferDone(0)).To(Succeed())

			Expect(ch.ReadLegacyControl(SubmoduleA)).To(Equal(uint8(0x16)))
			Expect(ch.ReadLegacyControl(SubmoduleB)).To(Equal(uint8(0x90)))
		})
	})

	It("should log register accesses through a log hook", func() {
		var buf bytes.Buffer
		dmac.AcceptHook(hooking.NewLogHook(log.New(&buf, "", 0)))

		dmac.WriteWriteEnable(0x03)
		dmac.ReadWriteEnable()

		Expect(buf.String()).To(Equal(
			"DMAC RegWrite DMAWER=03\n" +
				"DMAC RegRead DMAWER=03\n"))
	})
})
