package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/h8dma/hooking"
)

type sampleDomain struct {
	*hooking.HookableBase
}

func (d *sampleDomain) Name() string {
	return "DMAC.Ch0"
}

type countingTracer struct {
	started, stepped, ended []string
	where                   []string
}

func (t *countingTracer) StartTask(task Task) {
	t.started = append(t.started, task.ID)
}

func (t *countingTracer) StepTask(task Task) {
	t.stepped = append(t.stepped, task.ID)
}

func (t *countingTracer) EndTask(task Task) {
	t.ended = append(t.ended, task.ID)
	t.where = append(t.where, task.Where)
}

var _ = Describe("CollectTrace", func() {
	var (
		domain *sampleDomain
		tracer *countingTracer
	)

	BeforeEach(func() {
		domain = &sampleDomain{HookableBase: hooking.NewHookableBase()}
		tracer = &countingTracer{}
	})

	It("should forward task events to the tracer", func() {
		CollectTrace(domain, tracer)

		StartTask("t1", "", domain, "dma_transfer", "normal", nil)
		AddTaskStep("t1", domain, "resume")
		EndTask("t1", domain)

		Expect(tracer.started).To(Equal([]string{"t1"}))
		Expect(tracer.stepped).To(Equal([]string{"t1"}))
		Expect(tracer.ended).To(Equal([]string{"t1"}))
	})

	It("should ignore other hook positions", func() {
		CollectTrace(domain, tracer)

		domain.InvokeHook(hooking.HookCtx{
			Domain: domain,
			Pos:    &hooking.HookPos{Name: "RegWrite"},
			Item:   "DMABCR=0000",
		})

		Expect(tracer.started).To(BeEmpty())
	})

	It("should share one hook between tracers", func() {
		other := &countingTracer{}
		CollectTrace(domain, tracer)
		CollectTrace(domain, other)

		StartTask("t1", "", domain, "dma_transfer", "normal", nil)
		EndTask("t1", domain)

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(tracer.ended).To(Equal([]string{"t1"}))
		Expect(other.ended).To(Equal([]string{"t1"}))
	})

	It("should stamp end events with the domain name", func() {
		CollectTrace(domain, tracer)

		EndTask("t1", domain)

		Expect(tracer.where).To(Equal([]string{"DMAC.Ch0"}))
	})

	It("should refuse the same tracer twice", func() {
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
		Expect(func() {
			CollectTrace(domain, &countingTracer{}, tracer)
		}).To(Panic())
	})
})
