package tracing

import (
	"context"

	"github.com/sarchlab/h8dma/datarecording"
)

// ReadTasks loads the tasks written by a DBTracer, together with their
// steps, ordered by start time. Tasks that were still running when the
// tracer terminated are included; their end time is the termination time.
func ReadTasks(
	ctx context.Context,
	reader datarecording.DataReader,
) ([]Task, error) {
	reader.MapTable(TaskTableName, taskTableEntry{})
	reader.MapTable(StepTableName, stepTableEntry{})

	taskRows, err := reader.Select(ctx, TaskTableName,
		datarecording.Selection{OrderBy: []string{"StartTime", "ID"}})
	if err != nil {
		return nil, err
	}

	stepRows, err := reader.Select(ctx, StepTableName,
		datarecording.Selection{OrderBy: []string{"Time"}})
	if err != nil {
		return nil, err
	}

	steps := make(map[string][]TaskStep)
	for _, row := range stepRows {
		s := row.(*stepTableEntry)
		steps[s.TaskID] = append(steps[s.TaskID], TaskStep{
			Time: VTime(s.Time),
			What: s.What,
		})
	}

	tasks := make([]Task, 0, len(taskRows))
	for _, row := range taskRows {
		e := row.(*taskTableEntry)
		tasks = append(tasks, Task{
			ID:        e.ID,
			ParentID:  e.ParentID,
			Kind:      e.Kind,
			What:      e.What,
			Where:     e.Location,
			StartTime: VTime(e.StartTime),
			EndTime:   VTime(e.EndTime),
			Steps:     steps[e.ID],
		})
	}

	return tasks, nil
}
