package model

import "fmt"

// ValidationError reports a structural or ownership-continuity failure in a
// miner's response. The message is recorded verbatim on the zero score.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalidf returns a *ValidationError with a formatted message.
func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TaskError reports a failure to obtain a response from a miner: transport,
// timeout or protocol errors.
type TaskError struct {
	Message string
	TaskID  string
	BatchID string
	Err     error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("TaskError(%s: task_id=%s; batch_id=%s)", e.Message, e.TaskID, e.BatchID)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}
