package worker

import "context"

// Task is a unit of periodic background work.
type Task interface {
	// Name identifies the task in logs.
	Name() string

	// Run performs one pass. Errors are logged; the task runs again on the
	// next tick regardless.
	Run(ctx context.Context) error
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

// Name implements Task.
func (t TaskFunc) Name() string {
	return t.TaskName
}

// Run implements Task.
func (t TaskFunc) Run(ctx context.Context) error {
	return t.Fn(ctx)
}
