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

package streamqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePutThenFinish(t *testing.T) {
	q := New[string]()

	assert.True(t, q.IsEmpty())
	assert.False(t, q.IsFinished())

	q.Put("a")
	q.Put("b")
	q.Finish()

	assert.True(t, q.IsFinished())

	var got []string
	for v := range q.Stream() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, q.IsEmpty())
}

func TestQueueFinishWithoutPut(t *testing.T) {
	q := New[string]()
	q.Finish()

	var got []string
	for v := range q.Stream() {
		got = append(got, v)
	}
	assert.Empty(t, got)
}

func TestQueueZeroValuesAreData(t *testing.T) {
	q := New[string]()
	q.Put("")
	q.Put("x")
	q.Put("")
	q.Finish()

	var got []string
	for v := range q.Stream() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"", "x", ""}, got)
}

func TestQueueConsumerWaitsAcrossTransientEmptiness(t *testing.T) {
	q := New[int]()

	done := make(chan []int, 1)
	go func() {
		var got []int
		for v := range q.Stream() {
			got = append(got, v)
		}
		done <- got
	}()

	q.Put(1)
	time.Sleep(10 * time.Millisecond) // let the consumer drain and block empty
	q.Put(2)
	time.Sleep(10 * time.Millisecond)
	q.Finish()

	select {
	case got := <-done:
		assert.Equal(t, []int{1, 2}, got)
	case <-time.After(time.Second):
		t.Fatal("consumer did not terminate after Finish")
	}
}

func TestQueueFinishIsIdempotent(t *testing.T) {
	q := New[string]()
	q.Put("a")
	q.Finish()
	q.Finish()

	var got []string
	for v := range q.Stream() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a"}, got)
	assert.True(t, q.IsEmpty())
}

func TestQueuePutAfterFinishIsNotDelivered(t *testing.T) {
	q := New[string]()
	q.Put("a")
	q.Finish()
	q.Put("late")

	var got []string
	for v := range q.Stream() {
		got = append(got, v)
	}
	assert.Equal(t, []string{"a"}, got)
}

func TestQueueEarlyConsumerBreak(t *testing.T) {
	q := New[int]()
	q.Put(1)
	q.Put(2)
	q.Put(3)
	q.Finish()

	var got []int
	for v := range q.Stream() {
		got = append(got, v)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []int{1, 2}, got)
	assert.False(t, q.IsEmpty())
}
