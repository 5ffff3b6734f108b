package monitoring

import (
	"sync"
	"time"

	"github.com/rs/xid"
)

// A ProgressBar follows one scenario run: how many of its steps are done,
// which kind of step ran last, and how many units the bus moved on the way.
type ProgressBar struct {
	lock sync.Mutex

	id         string
	name       string
	startTime  time.Time
	totalSteps int
	doneSteps  int
	lastStep   string
	units      uint64
	failure    string
}

func newProgressBar(name string, totalSteps int) *ProgressBar {
	return &ProgressBar{
		id:         xid.New().String(),
		name:       name,
		startTime:  time.Now(),
		totalSteps: totalSteps,
	}
}

// ID returns the identifier the progress endpoint reports for the bar.
func (b *ProgressBar) ID() string {
	return b.id
}

// StepDone records a finished step of the given kind and the units it
// moved.
func (b *ProgressBar) StepDone(kind string, units int) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.doneSteps++
	b.lastStep = kind
	b.units += uint64(units)
}

// Fail marks the run as stopped by err. Later steps are not expected.
func (b *ProgressBar) Fail(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.failure = err.Error()
}

type progressRsp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	TotalSteps int       `json:"total_steps"`
	DoneSteps  int       `json:"done_steps"`
	LastStep   string    `json:"last_step,omitempty"`
	Units      uint64    `json:"units"`
	Failure    string    `json:"failure,omitempty"`
}

func (b *ProgressBar) snapshot() progressRsp {
	b.lock.Lock()
	defer b.lock.Unlock()

	return progressRsp{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.startTime,
		TotalSteps: b.totalSteps,
		DoneSteps:  b.doneSteps,
		LastStep:   b.lastStep,
		Units:      b.units,
		Failure:    b.failure,
	}
}
