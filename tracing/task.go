package tracing

// VTime is a point in simulated time, counted in bus cycles.
type VTime uint64

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time VTime  `json:"time"`
	What string `json:"what"`
}

// A Task is a task
type Task struct {
	ID        string     `json:"id"`
	ParentID  string     `json:"parent_id"`
	Kind      string     `json:"kind"`
	What      string     `json:"what"`
	Where     string     `json:"where"`
	StartTime VTime      `json:"start_time"`
	EndTime   VTime      `json:"end_time"`
	Steps     []TaskStep `json:"steps"`
	Detail    any        `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// AllTasks is a TaskFilter that accepts every task.
func AllTasks(Task) bool {
	return true
}
