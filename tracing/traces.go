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

// A Trace is the root observability object. It groups the spans of one
// logical workflow run, such as a single agent invocation.
type Trace interface {
	// Run starts the trace, invokes fn, and finishes the trace afterwards,
	// even when fn returns an error.
	Run(ctx context.Context, fn func(context.Context, Trace) error) error

	// Start begins the trace. When markAsCurrent is true, the trace also
	// becomes the active trace in the context scope.
	Start(ctx context.Context, markAsCurrent bool) error

	// Finish ends the trace. When resetCurrent is true, the previously
	// active trace is restored in the context scope.
	Finish(ctx context.Context, resetCurrent bool) error

	// TraceID reports the trace identifier.
	TraceID() string

	// Name reports the name of the traced workflow.
	Name() string

	// Export returns the trace rendered as a map, or nil for
	// non-recording traces.
	Export() map[string]any
}

// TraceImpl is the Trace implementation that reports to a Processor.
type TraceImpl struct {
	name      string
	traceID   string
	groupID   string
	metadata  map[string]any
	processor Processor
	prevTrace Trace
	started   bool
}

func NewTraceImpl(name, traceID, groupID string, metadata map[string]any, processor Processor) *TraceImpl {
	if traceID == "" {
		traceID = GenTraceID()
	}
	return &TraceImpl{
		name:      name,
		traceID:   traceID,
		groupID:   groupID,
		metadata:  metadata,
		processor: processor,
	}
}

func (t *TraceImpl) Run(ctx context.Context, fn func(context.Context, Trace) error) (err error) {
	ctx = ContextWithClonedOrNewScope(ctx)

	switch {
	case !t.started:
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

func (t *TraceImpl) Start(ctx context.Context, markAsCurrent bool) error {
	if t.started {
		return nil
	}
	t.started = true

	if err := t.processor.OnTraceStart(ctx, t); err != nil {
		return err
	}

	if markAsCurrent {
		t.prevTrace = SetCurrentTraceToContextScope(ctx, t)
	}
	return nil
}

func (t *TraceImpl) Finish(ctx context.Context, resetCurrent bool) error {
	if !t.started {
		return nil
	}

	if err := t.processor.OnTraceEnd(ctx, t); err != nil {
		return err
	}

	if resetCurrent && t.prevTrace != nil {
		SetCurrentTraceToContextScope(ctx, t.prevTrace)
		t.prevTrace = nil
	}
	return nil
}

func (t *TraceImpl) TraceID() string { return t.traceID }
func (t *TraceImpl) Name() string    { return t.name }

func (t *TraceImpl) Export() map[string]any {
	return map[string]any{
		"object":        "trace",
		"id":            t.traceID,
		"workflow_name": t.name,
		"group_id":      nilIfEmpty(t.groupID),
		"metadata":      t.metadata,
	}
}
