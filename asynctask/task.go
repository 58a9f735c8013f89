// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package asynctask runs a function in a background goroutine and lets the
// caller await its outcome. Panics inside the function are recovered and
// surfaced through the result error, so a crashing producer can never take
// the whole process down with it.
package asynctask

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

type Task[T any] struct {
	cancel   context.CancelFunc
	canceled atomic.Bool
	done     chan struct{}
	result   Result[T]
}

type Result[T any] struct {
	Value T
	Error error
}

var taskCanceledErr = errors.New("task has been canceled")

func TaskCanceledErr() error { return taskCanceledErr }

// Await blocks until the task function has returned (or panicked) and
// reports its result. It can be called any number of times.
func (t *Task[T]) Await() Result[T] {
	<-t.done
	return t.result
}

func (t *Task[T]) IsDone() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

func (t *Task[T]) IsCanceled() bool {
	return t.canceled.Load()
}

// Cancel cancels the task's context. Canceling a task that has already
// finished has no effect.
func (t *Task[T]) Cancel() {
	select {
	case <-t.done:
		return
	default:
	}
	if t.canceled.CompareAndSwap(false, true) {
		t.cancel()
	}
}

type TaskFunc[T any] = func(context.Context) (T, error)

// CreateTask starts fn in a new goroutine. The context given to fn is
// derived from ctx and canceled once the task finishes or Cancel is called,
// so external calls made by fn die with the request instead of stalling
// forever.
func CreateTask[T any](ctx context.Context, fn TaskFunc[T]) *Task[T] {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		var value T
		var err error

		defer func() {
			if r := recover(); r != nil {
				err = errors.Join(err, fmt.Errorf("task panicked: %v", r))
			}
			if t.canceled.Load() {
				err = errors.Join(err, TaskCanceledErr())
			}
			t.result = Result[T]{Value: value, Error: err}
			close(t.done)
			cancel()
		}()

		value, err = fn(ctx)
	}()

	return t
}

type TaskNoValue = Task[struct{}]

func CreateTaskNoValue(ctx context.Context, fn func(context.Context) error) *TaskNoValue {
	return CreateTask[struct{}](ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}
