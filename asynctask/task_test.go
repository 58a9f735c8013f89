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

package asynctask

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskAwait(t *testing.T) {
	task := CreateTask(t.Context(), func(context.Context) (int, error) {
		return 42, nil
	})

	result := task.Await()
	require.NoError(t, result.Error)
	assert.Equal(t, 42, result.Value)
	assert.True(t, task.IsDone())
	assert.False(t, task.IsCanceled())

	// Await can be repeated.
	assert.Equal(t, result, task.Await())
}

func TestTaskError(t *testing.T) {
	wantErr := errors.New("boom")
	task := CreateTask(t.Context(), func(context.Context) (string, error) {
		return "", wantErr
	})

	result := task.Await()
	assert.ErrorIs(t, result.Error, wantErr)
}

func TestTaskPanicIsRecovered(t *testing.T) {
	task := CreateTask(t.Context(), func(context.Context) (int, error) {
		panic("something went wrong")
	})

	result := task.Await()
	require.Error(t, result.Error)
	assert.ErrorContains(t, result.Error, "task panicked: something went wrong")
}

func TestTaskCancel(t *testing.T) {
	started := make(chan struct{})
	task := CreateTask(t.Context(), func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})

	<-started
	task.Cancel()

	result := task.Await()
	assert.True(t, task.IsCanceled())
	assert.ErrorIs(t, result.Error, TaskCanceledErr())
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestTaskCancelAfterDoneIsNoOp(t *testing.T) {
	task := CreateTask(t.Context(), func(context.Context) (int, error) {
		return 1, nil
	})

	task.Await()
	task.Cancel()

	assert.False(t, task.IsCanceled())
	assert.NoError(t, task.Await().Error)
}

func TestTaskParentContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	task := CreateTask(ctx, func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	cancel()
	result := task.Await()
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestTaskNoValue(t *testing.T) {
	task := CreateTaskNoValue(t.Context(), func(context.Context) error {
		return nil
	})

	result := task.Await()
	assert.NoError(t, result.Error)
	assert.Equal(t, struct{}{}, result.Value)
}
