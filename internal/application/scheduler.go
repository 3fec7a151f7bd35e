package application

import "context"

// Task is a unit of background work detached from the request that queued it.
type Task func(ctx context.Context)

// Scheduler port for fire-and-forget execution. Once scheduled a task runs
// to completion regardless of the triggering request's lifetime.
type Scheduler interface {
	Schedule(task Task)
}

// GoScheduler runs each task on its own goroutine with context.Background()
// so it is not cancelled when the triggering request ends.
type GoScheduler struct{}

func (GoScheduler) Schedule(task Task) {
	go task(context.Background())
}

// SyncScheduler runs the task inline. Used in tests where the background
// job must have finished before assertions run.
type SyncScheduler struct{}

func (SyncScheduler) Schedule(task Task) {
	task(context.Background())
}
