package tracing

import (
	"sort"
	"sync"
)

// A UnitPlan is a task detail that tells how much data the task is set to
// move. DMA transfers carry their TransferState, which implements it.
type UnitPlan interface {
	UnitCount() uint32
	UnitSize() uint32
}

// GroupBy picks the group a task is counted in.
type GroupBy func(t Task) string

// ByWhere groups tasks by the domain that runs them, one group per channel
// for DMA transfers.
func ByWhere(t Task) string {
	return t.Where
}

// ByWhat groups tasks by what they do, the transfer mode for DMA transfers.
func ByWhat(t Task) string {
	return t.What
}

// OneGroup counts every task in a single unnamed group.
func OneGroup(Task) string {
	return ""
}

// TransferStats sums up the tasks of one group.
type TransferStats struct {
	Group string

	// Transfers is the number of finished tasks and Cycles the sum of their
	// durations.
	Transfers uint64
	Cycles    VTime

	// BusyCycles counts the cycles in which at least one task of the group
	// was in flight, unfinished tasks included. Overlapping tasks count once.
	BusyCycles VTime

	// Units and Bytes count what the tasks were loaded with: one block when
	// they start and another one on every refill step.
	Units uint64
	Bytes uint64

	// Steps counts the steps by name.
	Steps map[string]uint64
}

// AverageCycles returns the mean duration of the finished tasks.
func (s TransferStats) AverageCycles() float64 {
	if s.Transfers == 0 {
		return 0
	}

	return float64(s.Cycles) / float64(s.Transfers)
}

type trackedTask struct {
	group     string
	start     VTime
	blockSize uint64
	unitSize  uint64
}

type groupState struct {
	stats     TransferStats
	inflight  int
	busySince VTime
}

// TransferStatsTracer keeps TransferStats per group of tasks.
type TransferStatsTracer struct {
	timeTeller  TimeTeller
	filter      TaskFilter
	groupBy     GroupBy
	refillSteps map[string]bool

	lock   sync.Mutex
	tasks  map[string]trackedTask
	groups map[string]*groupState
}

// NewTransferStatsTracer creates a tracer that counts the tasks accepted by
// filter in the groups picked by groupBy.
func NewTransferStatsTracer(
	timeTeller TimeTeller,
	filter TaskFilter,
	groupBy GroupBy,
) *TransferStatsTracer {
	return &TransferStatsTracer{
		timeTeller:  timeTeller,
		filter:      filter,
		groupBy:     groupBy,
		refillSteps: make(map[string]bool),
		tasks:       make(map[string]trackedTask),
		groups:      make(map[string]*groupState),
	}
}

// RefillOn names the steps after which a task moves another block as large
// as the one it started with, such as the reload of a repeat transfer.
func (t *TransferStatsTracer) RefillOn(steps ...string) *TransferStatsTracer {
	for _, s := range steps {
		t.refillSteps[s] = true
	}

	return t
}

// StartTask opens a task and counts its first block.
func (t *TransferStatsTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	now := t.timeTeller.CurrentTime()
	tracked := trackedTask{group: t.groupBy(task), start: now}

	if plan, ok := task.Detail.(UnitPlan); ok {
		tracked.blockSize = uint64(plan.UnitCount())
		tracked.unitSize = uint64(plan.UnitSize())
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	g := t.group(tracked.group)
	if g.inflight == 0 {
		g.busySince = now
	}

	g.inflight++
	g.addBlock(tracked)
	t.tasks[task.ID] = tracked
}

// StepTask counts the steps of a tracked task.
func (t *TransferStatsTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	tracked, ok := t.tasks[task.ID]
	if !ok {
		return
	}

	g := t.groups[tracked.group]
	for _, s := range task.Steps {
		g.stats.Steps[s.What]++

		if t.refillSteps[s.What] {
			g.addBlock(tracked)
		}
	}
}

// EndTask closes a tracked task.
func (t *TransferStatsTracer) EndTask(task Task) {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	tracked, ok := t.tasks[task.ID]
	if !ok {
		return
	}

	delete(t.tasks, task.ID)

	g := t.groups[tracked.group]
	g.stats.Transfers++
	g.stats.Cycles += now - tracked.start

	g.inflight--
	if g.inflight == 0 {
		g.stats.BusyCycles += now - g.busySince
	}
}

// Stats returns the statistics of every group seen so far, sorted by group
// name. Busy time of the tasks still in flight runs up to now.
func (t *TransferStatsTracer) Stats() []TransferStats {
	now := t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	stats := make([]TransferStats, 0, len(t.groups))
	for _, g := range t.groups {
		s := g.stats
		s.Steps = make(map[string]uint64, len(g.stats.Steps))
		for k, v := range g.stats.Steps {
			s.Steps[k] = v
		}

		if g.inflight > 0 {
			s.BusyCycles += now - g.busySince
		}

		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Group < stats[j].Group
	})

	return stats
}

func (t *TransferStatsTracer) group(name string) *groupState {
	g, ok := t.groups[name]
	if !ok {
		g = &groupState{stats: TransferStats{
			Group: name,
			Steps: make(map[string]uint64),
		}}
		t.groups[name] = g
	}

	return g
}

func (g *groupState) addBlock(task trackedTask) {
	g.stats.Units += task.blockSize
	g.stats.Bytes += task.blockSize * task.unitSize
}
