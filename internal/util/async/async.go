package async

import (
	"context"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// Result is the outcome of one task started by RunAll.
type Result struct {
	Name string
	Err  error
}

// RunAll executes all tasks concurrently, waits for every one of them and
// returns their results in task order.
func RunAll(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	type indexed struct {
		idx int
		err error
	}

	resultChan := make(chan indexed, len(tasks))
	for i, task := range tasks {
		go func() {
			resultChan <- indexed{idx: i, err: task.Func(ctx)}
		}()
	}

	results := make([]Result, len(tasks))
	for range len(tasks) {
		res := <-resultChan
		results[res.idx] = Result{Name: tasks[res.idx].Name, Err: res.err}
	}
	return results
}
