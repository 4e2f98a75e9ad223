package evaluation

import "fmt"

// ErrorKind classifies why an evaluator invocation failed
type ErrorKind int

const (
	// SpawnFailure means the process could not be started
	SpawnFailure ErrorKind = iota + 1
	// NonZeroExit means the process ran and exited unsuccessfully
	NonZeroExit
	// Timeout means the process was killed after exceeding its deadline
	Timeout
)

func (k ErrorKind) String() string {
	switch k {
	case SpawnFailure:
		return "spawn_failure"
	case NonZeroExit:
		return "nonzero_exit"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// InvocationError is returned by Invoker.Invoke when the evaluator did not succeed.
// Details carries the evaluator's stderr, or the Go error text when stderr was empty.
type InvocationError struct {
	Kind     ErrorKind
	Details  string
	ExitCode int
	Err      error
}

func (e *InvocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluator %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("evaluator %s", e.Kind)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}
