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

// Package streamqueue provides an unbounded FIFO queue bridging one
// background producer and one consumer, with an explicit end-of-stream
// marker so that any value of T, including the zero value, is valid data.
package streamqueue

import (
	"iter"
	"sync"
)

// item is internally tagged: either a data value or the end marker.
// The marker is a separate field rather than a sentinel value, so it can
// never collide with data the producer puts.
type item[T any] struct {
	value T
	end   bool
}

type Queue[T any] struct {
	cond     *sync.Cond
	items    []item[T]
	finished bool
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		cond: sync.NewCond(&sync.Mutex{}),
	}
}

// Put appends a value to the tail of the queue. It never blocks.
// Values put after Finish land behind the end marker and are never
// delivered to the consumer.
func (q *Queue[T]) Put(v T) {
	q.cond.L.Lock()
	q.items = append(q.items, item[T]{value: v})
	q.cond.Broadcast()
	q.cond.L.Unlock()
}

// Finish marks the queue as complete and appends the end marker.
// It is safe to call from a deferred cleanup; calls after the first
// are no-ops.
func (q *Queue[T]) Finish() {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	if q.finished {
		return
	}
	q.finished = true
	q.items = append(q.items, item[T]{end: true})
	q.cond.Broadcast()
}

// Stream returns a sequence that removes and yields values from the head
// of the queue, blocking only while the queue is momentarily empty. The
// sequence terminates exactly when the end marker is removed: the consumer
// never observes the marker itself and never terminates before Finish has
// been called.
func (q *Queue[T]) Stream() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			it := q.get()
			if it.end {
				return
			}
			if !yield(it.value) {
				return
			}
		}
	}
}

func (q *Queue[T]) IsEmpty() bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return len(q.items) == 0
}

func (q *Queue[T]) IsFinished() bool {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	return q.finished
}

func (q *Queue[T]) get() item[T] {
	q.cond.L.Lock()
	defer q.cond.L.Unlock()
	for len(q.items) == 0 {
		q.cond.Wait()
	}
	v := q.items[0]
	copy(q.items[:len(q.items)-1], q.items[1:])
	clear(q.items[len(q.items)-1:]) // helps GC
	q.items = q.items[:len(q.items)-1]
	q.cond.Broadcast()
	return v
}
