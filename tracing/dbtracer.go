package tracing

import (
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/h8dma/datarecording"
)

// Names of the tables written by DBTracer.
const (
	TaskTableName = "dma_task"
	StepTableName = "dma_task_step"
)

type taskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	StartTime uint64
	EndTime   uint64
	Finished  bool
}

type stepTableEntry struct {
	TaskID string
	What   string
	Time   uint64
}

// DBTracer is a tracer that can store tasks into a database.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime VTime

	tracingTasks map[string]Task
	terminated   bool
}

// NewDBTracer creates a new DBTracer. The tracer writes the unfinished tasks
// and flushes the recorder when the program exits through atexit.
func NewDBTracer(
	timeTeller TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(TaskTableName, taskTableEntry{})
	dataRecorder.CreateTable(StepTableName, stepTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits tracing to tasks that overlap the given window. A zero
// bound is open.
func (t *DBTracer) SetTimeRange(startTime, endTime VTime) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task location must be set")
	}
}

// StepTask records a step of a traced task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tracingTasks[task.ID]; !ok {
		return
	}

	now := t.timeTeller.CurrentTime()
	for _, step := range task.Steps {
		t.backend.InsertData(StepTableName, stepTableEntry{
			TaskID: task.ID,
			What:   step.What,
			Time:   uint64(now),
		})
	}
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	originalTask.EndTime = t.timeTeller.CurrentTime()
	if t.startTime > 0 && originalTask.EndTime < t.startTime {
		return
	}

	t.writeTask(originalTask, true)
}

func (t *DBTracer) writeTask(task Task, finished bool) {
	t.backend.InsertData(TaskTableName, taskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: uint64(task.StartTime),
		EndTime:   uint64(task.EndTime),
		Finished:  finished,
	})
}

// Terminate writes the tasks that are still running, ending them at the
// current time, and flushes the recorder. Calling it again does nothing.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true

	now := t.timeTeller.CurrentTime()
	for _, task := range t.tracingTasks {
		task.EndTime = now
		t.writeTask(task, false)
	}

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
