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
	"cmp"
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// SpanError describes a failure captured inside a span.
type SpanError struct {
	Message string
	Data    map[string]any
}

func (err SpanError) Error() string { return cmp.Or(err.Message, "span error") }

func (err SpanError) Export() map[string]any {
	return map[string]any{
		"message": err.Message,
		"data":    err.Data,
	}
}

// A Span marks one timed operation inside a Trace, such as an agent turn,
// a tool call, a model generation, or an OAuth authorization.
type Span interface {
	// Run starts the span, invokes fn, and finishes the span afterwards,
	// even when fn returns an error.
	Run(ctx context.Context, fn func(context.Context, Span) error) error

	// Start begins the span. When markAsCurrent is true, the span also
	// becomes the active span in the context scope.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish ends the span. When resetCurrent is true, the previously
	// active span is restored in the context scope.
	Finish(ctx context.Context, resetCurrent bool) error

	TraceID() string
	SpanID() string
	SpanData() SpanData
	ParentID() string
	SetError(err SpanError)
	Error() *SpanError
	StartedAt() string
	EndedAt() string
	Export() map[string]any
}

// runSpan implements the Run behavior shared by all Span implementations:
// fork the context scope, start the span as current, and finish it once fn
// returns.
func runSpan(ctx context.Context, span Span, fn func(context.Context, Span) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)

	if err = span.Start(ctx, true); err != nil {
		return err
	}

	defer func() {
		if e := span.Finish(ctx, true); e != nil {
			err = errors.Join(err, e)
		}
	}()

	return fn(ctx, span)
}

// SpanImpl is the Span implementation that reports to a Processor.
type SpanImpl struct {
	traceID   string
	spanID    string
	parentID  string
	startedAt time.Time
	endedAt   time.Time
	err       atomic.Pointer[SpanError]
	prevSpan  *Span
	processor Processor
	data      SpanData
}

func NewSpanImpl(traceID, spanID, parentID string, processor Processor, data SpanData) *SpanImpl {
	if spanID == "" {
		spanID = GenSpanID()
	}
	return &SpanImpl{
		traceID:   traceID,
		spanID:    spanID,
		parentID:  parentID,
		processor: processor,
		data:      data,
	}
}

func (s *SpanImpl) Run(ctx context.Context, fn func(context.Context, Span) error) error {
	return runSpan(ctx, s, fn)
}

func (s *SpanImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if !s.startedAt.IsZero() {
		Logger().Warn("Span already started")
		return nil
	}

	s.startedAt = time.Now().UTC()
	if err := s.processor.OnSpanStart(ctx, s); err != nil {
		return err
	}

	if markAsCurrent {
		prev := SetCurrentSpanToContextScope(ctx, s)
		s.prevSpan = &prev
	}
	return nil
}

func (s *SpanImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if !s.endedAt.IsZero() {
		Logger().Warn("Span already finished")
		return nil
	}

	s.endedAt = time.Now().UTC()
	if err := s.processor.OnSpanEnd(ctx, s); err != nil {
		return err
	}

	if resetCurrent && s.prevSpan != nil {
		SetCurrentSpanToContextScope(ctx, *s.prevSpan)
		s.prevSpan = nil
	}
	return nil
}

func (s *SpanImpl) TraceID() string        { return s.traceID }
func (s *SpanImpl) SpanID() string         { return s.spanID }
func (s *SpanImpl) SpanData() SpanData     { return s.data }
func (s *SpanImpl) ParentID() string       { return s.parentID }
func (s *SpanImpl) SetError(err SpanError) { s.err.Store(&err) }
func (s *SpanImpl) Error() *SpanError      { return s.err.Load() }

// StartedAt reports the span start time in RFC 3339 format with
// nanoseconds, or an empty string when the span has not started.
func (s *SpanImpl) StartedAt() string { return formatSpanTime(s.startedAt) }

// EndedAt reports the span end time in RFC 3339 format with nanoseconds,
// or an empty string when the span has not finished.
func (s *SpanImpl) EndedAt() string { return formatSpanTime(s.endedAt) }

func formatSpanTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func (s *SpanImpl) Export() map[string]any {
	var data map[string]any
	if s.data != nil {
		data = s.data.Export()
	}

	var exportedError map[string]any
	if err := s.err.Load(); err != nil {
		exportedError = err.Export()
	}

	return map[string]any{
		"object":     "trace.span",
		"id":         s.spanID,
		"trace_id":   s.traceID,
		"parent_id":  nilIfEmpty(s.parentID),
		"started_at": nilIfEmpty(s.StartedAt()),
		"ended_at":   nilIfEmpty(s.EndedAt()),
		"span_data":  data,
		"error":      exportedError,
	}
}
