package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecTableName is the table that holds the metadata of a run.
const ExecTableName = "exec_info"

const timeLayout = "2006-01-02 15:04:05.000000000"

// ExecInfo is one property of a run.
type ExecInfo struct {
	Property string
	Value    string
}

// execRecorder records when and how the program was run.
type execRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
	ended    bool
}

func newExecRecorder(recorder DataRecorder) *execRecorder {
	e := &execRecorder{recorder: recorder}

	recorder.CreateTable(ExecTableName, ExecInfo{})
	e.Start()

	return e
}

// Start collects the start time, the command line, and the working
// directory.
func (e *execRecorder) Start() {
	e.entries = append(e.entries,
		ExecInfo{"Start Time", time.Now().Format(timeLayout)},
		ExecInfo{"Command", strings.Join(os.Args, " ")},
	)

	cwd, err := os.Getwd()
	if err == nil {
		e.entries = append(e.entries, ExecInfo{"Working Directory", cwd})
	}
}

// End writes the collected entries along with the exit time.
func (e *execRecorder) End() {
	if e.ended {
		return
	}

	e.ended = true

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.recorder.InsertData(ExecTableName,
		ExecInfo{"End Time", time.Now().Format(timeLayout)})

	e.entries = nil

	e.recorder.Flush()
}
