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

package tracing

import (
	"context"
	"errors"
)

// NoOpTrace is the Trace returned when tracing is disabled. It still tracks
// the context scope so nesting keeps working, but it never reaches a
// Processor and exports nothing.
type NoOpTrace struct {
	started   bool
	prevTrace Trace
}

func NewNoOpTrace() *NoOpTrace {
	return &NoOpTrace{}
}

func (t *NoOpTrace) Run(ctx context.Context, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)

	switch {
	case !t.started:
		t.started = true
		if err = t.Start(ctx, true); err != nil {
			return err
		}
	case t.prevTrace == nil:
		Logger().Error("Trace already started but no context token set")
	}

	defer func() {
		if e := t.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()

	return fn(ctx, t)
}

func (t *NoOpTrace) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		t.prevTrace = SetCurrentTraceToContextScope(ctx, t)
	}
	return nil
}

func (t *NoOpTrace) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent && t.prevTrace != nil {
		SetCurrentTraceToContextScope(ctx, t.prevTrace)
		t.prevTrace = nil
	}
	return nil
}

func (t *NoOpTrace) TraceID() string        { return "no-op" }
func (t *NoOpTrace) Name() string           { return "no-op" }
func (t *NoOpTrace) Export() map[string]any { return nil }

// NoOpSpan is the Span returned when tracing is disabled, or when no
// recording trace is active.
type NoOpSpan struct {
	data     SpanData
	prevSpan *Span
}

func NewNoOpSpan(data SpanData) *NoOpSpan {
	return &NoOpSpan{data: data}
}

func (s *NoOpSpan) Run(ctx context.Context, fn func(context.Context, Span) error) error {
	return runSpan(ctx, s, fn)
}

func (s *NoOpSpan) Start(ctx context.Context, markAsCurrent bool) error {
	if markAsCurrent {
		prev := SetCurrentSpanToContextScope(ctx, s)
		s.prevSpan = &prev
	}
	return nil
}

func (s *NoOpSpan) Finish(ctx context.Context, resetCurrent bool) error {
	if resetCurrent && s.prevSpan != nil {
		SetCurrentSpanToContextScope(ctx, *s.prevSpan)
		s.prevSpan = nil
	}
	return nil
}

func (s *NoOpSpan) TraceID() string        { return "no-op" }
func (s *NoOpSpan) SpanID() string         { return "no-op" }
func (s *NoOpSpan) SpanData() SpanData     { return s.data }
func (s *NoOpSpan) ParentID() string       { return "" }
func (s *NoOpSpan) SetError(SpanError)     {}
func (s *NoOpSpan) Error() *SpanError      { return nil }
func (s *NoOpSpan) StartedAt() string      { return "" }
func (s *NoOpSpan) EndedAt() string        { return "" }
func (s *NoOpSpan) Export() map[string]any { return nil }
