package agent

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateAgent reports a Register call with a name that is already
// taken.
var ErrDuplicateAgent = errors.New("agent name already registered")

// RecursionError reports a tool loop that exceeded its step budget.
type RecursionError struct {
	Agent string
	Limit int
}

func (e *RecursionError) Error() string {
	return fmt.Sprintf("agent %q exceeded recursion limit %d", e.Agent, e.Limit)
}

// TimeoutError reports a supervisor invocation that outlived its bound.
// Specialists never raise it; their timeouts come back as a readable result
// string so the calling model can recover.
type TimeoutError struct {
	Agent   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent %q timed out after %s", e.Agent, e.Timeout)
}
