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
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// SpanOptions carries the optional arguments shared by all span constructors.
type SpanOptions struct {
	// Explicit span ID. Generated with GenSpanID when empty.
	SpanID string

	// Parent Trace or Span. When nil, the current trace and span from the
	// context scope are used.
	Parent any

	// When true, a non-recording span is returned.
	Disabled bool
}

// TraceProvider creates traces and spans and owns the processors that
// receive them.
type TraceProvider interface {
	// RegisterProcessor adds a processor that will receive all traces and spans.
	RegisterProcessor(processor Processor)

	// SetProcessors replaces the registered processors with the given ones.
	SetProcessors(processors []Processor)

	// GetCurrentTrace returns the trace marked as current in ctx, if any.
	GetCurrentTrace(ctx context.Context) Trace

	// GetCurrentSpan returns the span marked as current in ctx, if any.
	GetCurrentSpan(ctx context.Context) Span

	// SetDisabled turns tracing off, or back on, for the whole process.
	SetDisabled(disabled bool)

	// CreateTrace creates a new trace. The trace is not started.
	CreateTrace(params TraceParams) Trace

	// CreateSpan creates a new span carrying the given data.
	// The span is not started.
	CreateSpan(ctx context.Context, data SpanData, opts SpanOptions) Span

	// Shutdown releases the provider's resources, flushing pending data.
	Shutdown(ctx context.Context)
}

// DefaultTraceProvider is the TraceProvider installed at package
// initialization. Tracing can be disabled for the whole process by setting
// the AGENTID_DISABLE_TRACING environment variable to "true" or "1".
type DefaultTraceProvider struct {
	multi    *MultiProcessor
	disabled bool
}

func NewDefaultTraceProvider() *DefaultTraceProvider {
	v := strings.ToLower(os.Getenv("AGENTID_DISABLE_TRACING"))
	return &DefaultTraceProvider{
		multi:    NewMultiProcessor(),
		disabled: v == "true" || v == "1",
	}
}

func (p *DefaultTraceProvider) RegisterProcessor(processor Processor) {
	p.multi.AddProcessor(processor)
}

func (p *DefaultTraceProvider) SetProcessors(processors []Processor) {
	p.multi.SetProcessors(processors)
}

func (p *DefaultTraceProvider) GetCurrentTrace(ctx context.Context) Trace {
	return GetCurrentTraceFromContextScope(ctx)
}

func (p *DefaultTraceProvider) GetCurrentSpan(ctx context.Context) Span {
	return GetCurrentSpanFromContextScope(ctx)
}

func (p *DefaultTraceProvider) SetDisabled(disabled bool) {
	p.disabled = disabled
}

func (p *DefaultTraceProvider) CreateTrace(params TraceParams) Trace {
	if p.disabled || params.Disabled {
		Logger().Debug("Tracing is disabled. Not creating trace", slog.String("name", params.WorkflowName))
		return NewNoOpTrace()
	}

	traceID := params.TraceID
	if traceID == "" {
		traceID = GenTraceID()
	}

	Logger().Debug("Creating trace", slog.String("name", params.WorkflowName), slog.String("ID", traceID))
	return NewTraceImpl(params.WorkflowName, traceID, params.GroupID, params.Metadata, p.multi)
}

func (p *DefaultTraceProvider) CreateSpan(ctx context.Context, data SpanData, opts SpanOptions) Span {
	if p.disabled || opts.Disabled {
		Logger().Debug("Tracing is disabled. Not creating span", slog.Any("data", data))
		return NewNoOpSpan(data)
	}

	traceID, parentID, ok := resolveSpanParent(ctx, opts.Parent)
	if !ok {
		return NewNoOpSpan(data)
	}

	spanID := opts.SpanID
	if spanID == "" {
		spanID = GenSpanID()
	}

	Logger().Debug("Creating span", slog.Any("data", data), slog.String("ID", spanID))
	return NewSpanImpl(traceID, spanID, parentID, p.multi, data)
}

// resolveSpanParent derives the trace and parent span IDs for a new span.
// It reports ok as false when the span must not record, which happens when
// there is no active trace or when the parent chain ends in a
// non-recording trace or span.
func resolveSpanParent(ctx context.Context, parent any) (traceID, parentID string, ok bool) {
	switch parent := parent.(type) {
	case nil:
		currentTrace := GetCurrentTraceFromContextScope(ctx)
		if currentTrace == nil {
			Logger().Error("No active trace. Start a trace before creating spans.")
			return "", "", false
		}
		if _, isNoOp := currentTrace.(*NoOpTrace); isNoOp {
			Logger().Error("The current trace is non-recording, so the new span will not record either.")
			return "", "", false
		}
		currentSpan := GetCurrentSpanFromContextScope(ctx)
		if _, isNoOp := currentSpan.(*NoOpSpan); isNoOp {
			Logger().Error("The current span is non-recording, so the new span will not record either.")
			return "", "", false
		}
		if currentSpan != nil {
			parentID = currentSpan.SpanID()
		}
		return currentTrace.TraceID(), parentID, true

	case Trace:
		if _, isNoOp := parent.(*NoOpTrace); isNoOp {
			Logger().Debug("Parent trace is non-recording, the new span will not record.")
			return "", "", false
		}
		return parent.TraceID(), "", true

	case Span:
		if _, isNoOp := parent.(*NoOpSpan); isNoOp {
			Logger().Debug("Parent span is non-recording, the new span will not record.")
			return "", "", false
		}
		return parent.TraceID(), parent.SpanID(), true

	default:
		Logger().Error(fmt.Sprintf("Unexpected span parent type %T, the new span will not record.", parent))
		return "", "", false
	}
}

func (p *DefaultTraceProvider) Shutdown(ctx context.Context) {
	if p.disabled {
		return
	}

	Logger().Debug("Shutting down trace provider")
	if err := p.multi.Shutdown(ctx); err != nil {
		Logger().Error("Error shutting down trace provider", slog.String("error", err.Error()))
	}
}
