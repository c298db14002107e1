// seehuhn.de/go/pdr - convert e-reader PDR annotations into PDF annotations
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package batch

import (
	"context"
	"runtime"
	"sync"
)

// State is the outcome of a task.
type State int

// These are the possible outcomes of a task.
const (
	// Finished means that the task function returned without error.
	Finished State = iota

	// Failed means that the task function returned an error.
	Failed

	// Skipped means that the context was cancelled before the task was
	// started.
	Skipped
)

func (s State) String() string {
	switch s {
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result reports the outcome of one task.
type Result struct {
	Task  Task
	State State
	Err   error
}

// Func performs a single task.
type Func func(ctx context.Context, t Task) error

// Run calls fn for every task, using up to workers goroutines at a time.
// If workers is zero or negative, [runtime.NumCPU] is used.
//
// Exactly one Result is sent for every task.  The order of the results
// is not specified.  The channel is closed after the last result.
// Tasks which have not started when ctx is cancelled are reported as
// [Skipped].
func Run(ctx context.Context, tasks []Task, workers int, fn Func) <-chan Result {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(min(workers, len(tasks)), 1)

	queue := make(chan Task)
	results := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range queue {
				results <- runOne(ctx, t, fn)
			}
		}()
	}

	go func() {
		defer close(results)
		for _, t := range tasks {
			queue <- t
		}
		close(queue)
		wg.Wait()
	}()

	return results
}

func runOne(ctx context.Context, t Task, fn Func) Result {
	if err := ctx.Err(); err != nil {
		return Result{Task: t, State: Skipped, Err: err}
	}
	err := fn(ctx, t)
	if err != nil {
		return Result{Task: t, State: Failed, Err: err}
	}
	return Result{Task: t, State: Finished}
}
