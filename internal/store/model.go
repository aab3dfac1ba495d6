package store

import (
	"fmt"
	"time"
)

// State is the lifecycle state of an ExecDetail.
//
// Persisted as the integer codes INIT=0, RUNNING=1, PAUSED=2, BLOCKED=3, ERROR=4.
type State int

const (
	StateInit State = iota
	StateRunning
	StatePaused
	StateBlocked
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateRunning:
		return "RUNNING"
	case StatePaused:
		return "PAUSED"
	case StateBlocked:
		return "BLOCKED"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// TaskHandler is the durable identity of a callable: which object, which
// method. Stable across restarts, read-only once created.
type TaskHandler struct {
	Key           string
	BeanName      string
	BeanClassName string
	MethodName    string
}

// ExecDetail is one instance of "schedule X to run Y under constraints Z".
type ExecDetail struct {
	Key            string
	Desc           string
	CronExpr       string
	TaskHandlerKey string

	InitTime     time.Time
	EndTime      time.Time
	LastExecTime time.Time

	ExecCount    int64
	MaxExecCount int64 // 0 means unbounded

	State    State
	ErrorMsg string
}

// Unbounded reports whether the job has no execution cap.
func (e ExecDetail) Unbounded() bool { return e.MaxExecCount <= 0 }

// AtCap reports whether ExecCount has reached MaxExecCount.
func (e ExecDetail) AtCap() bool {
	return !e.Unbounded() && e.ExecCount >= e.MaxExecCount
}
