package tracing

import (
	"sort"
	"sync"
)

// InMemoryTracer keeps every traced task in memory. Finished tasks carry
// their start, step, and end times.
type InMemoryTracer struct {
	timeTeller TimeTeller
	filter     TaskFilter

	lock          sync.Mutex
	inflightTasks map[string]Task
	finishedTasks []Task
}

// NewInMemoryTracer creates a new InMemoryTracer.
func NewInMemoryTracer(timeTeller TimeTeller, filter TaskFilter) *InMemoryTracer {
	return &InMemoryTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// StartTask records the task start time
func (t *InMemoryTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask appends a time-stamped step to a traced task.
func (t *InMemoryTracer) StepTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	for _, step := range task.Steps {
		step.Time = t.timeTeller.CurrentTime()
		originalTask.Steps = append(originalTask.Steps, step)
	}

	t.inflightTasks[task.ID] = originalTask
}

// EndTask moves a traced task to the finished list.
func (t *InMemoryTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	originalTask.EndTime = t.timeTeller.CurrentTime()
	t.finishedTasks = append(t.finishedTasks, originalTask)
	delete(t.inflightTasks, task.ID)
}

// FinishedTasks returns the finished tasks in the order they finished.
func (t *InMemoryTracer) FinishedTasks() []Task {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]Task(nil), t.finishedTasks...)
}

// InflightTasks returns the tasks that have started but not finished, oldest
// first.
func (t *InMemoryTracer) InflightTasks() []Task {
	t.lock.Lock()
	defer t.lock.Unlock()

	tasks := make([]Task, 0, len(t.inflightTasks))
	for _, task := range t.inflightTasks {
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].StartTime != tasks[j].StartTime {
			return tasks[i].StartTime < tasks[j].StartTime
		}

		return tasks[i].ID < tasks[j].ID
	})

	return tasks
}
