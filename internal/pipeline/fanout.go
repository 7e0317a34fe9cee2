package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work in a fan-out.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Result is the outcome of one task.
type Result[T any] struct {
	Name  string
	Value T
	Err   error
}

// FanOut runs tasks with at most limit in flight and joins all of them.
// Results are returned in task order, each with its own error; one failing
// task never cancels the others. When timeout is positive it bounds the whole
// group: tasks not yet started report the context error instead of running.
func FanOut[T any](ctx context.Context, limit int, timeout time.Duration, tasks []Task[T]) []Result[T] {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results := make([]Result[T], len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		results[i].Name = task.Name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			v, err := runTask(ctx, task)
			results[i].Value = v
			results[i].Err = err
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runTask converts a panic in one task into that task's error.
func runTask[T any](ctx context.Context, task Task[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
