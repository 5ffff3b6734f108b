package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/h8dma/hooking"
)

var _ = Describe("Api", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *MockNamedHookable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewMockNamedHookable(mockCtrl)
		domain.EXPECT().NumHooks().Return(1).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should panic if ID is not given", func() {
		domain.EXPECT().Name().Return("domain").AnyTimes()
		Expect(func() {
			StartTask("", "123", domain, "kind", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if domain is nil.", func() {
		Expect(func() {
			StartTask("id", "123", nil, "kind", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if domain's name is empty.", func() {
		domain.EXPECT().Name().Return("").AnyTimes()
		Expect(func() {
			StartTask("id", "123", domain, "kind", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if kind is empty.", func() {
		domain.EXPECT().Name().Return("domain").AnyTimes()
		Expect(func() {
			StartTask("id", "123", domain, "", "what", nil)
		}).Should(Panic())
	})

	It("should be panic if what is empty.", func() {
		domain.EXPECT().Name().Return("domain").AnyTimes()
		Expect(func() {
			StartTask("id", "123", domain, "kind", "", nil)
		}).Should(Panic())
	})

	It("should place the task at the domain", func() {
		domain.EXPECT().Name().Return("DMAC.Ch0").AnyTimes()
		domain.EXPECT().
			InvokeHook(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosTaskStart))

				task := ctx.Item.(Task)
				Expect(task.ID).To(Equal("id"))
				Expect(task.Where).To(Equal("DMAC.Ch0"))
				Expect(task.Detail).To(Equal(42))
			})

		StartTask("id", "", domain, "kind", "what", 42)
	})

	It("should carry a single step", func() {
		domain.EXPECT().
			InvokeHook(gomock.Any()).
			Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosTaskStep))
				Expect(ctx.Item.(Task).Steps).To(Equal([]TaskStep{{What: "resume"}}))
			})

		AddTaskStep("id", domain, "resume")
	})

	It("should not invoke anything without hooks", func() {
		quiet := NewMockNamedHookable(mockCtrl)
		quiet.EXPECT().NumHooks().Return(0).AnyTimes()

		StartTask("id", "", quiet, "kind", "what", nil)
		AddTaskStep("id", quiet, "step")
		EndTask("id", quiet)
	})
})
