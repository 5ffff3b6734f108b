package tracing

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// A TimeTeller can tell the current time.
type TimeTeller interface {
	CurrentTime() VTime
}
