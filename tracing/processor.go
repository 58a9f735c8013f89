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
	"slices"
	"sync"
)

// Processor receives lifecycle callbacks for traces and spans.
//
// Implementations must tolerate concurrent calls: agent runs may start and
// finish traces and spans from multiple goroutines at once.
type Processor interface {
	// OnTraceStart is called right after a trace starts.
	OnTraceStart(ctx context.Context, trace Trace) error

	// OnTraceEnd is called when a trace finishes.
	OnTraceEnd(ctx context.Context, trace Trace) error

	// OnSpanStart is called right after a span starts.
	OnSpanStart(ctx context.Context, span Span) error

	// OnSpanEnd is called when a span finishes. It should return quickly,
	// leaving expensive work to a background worker.
	OnSpanEnd(ctx context.Context, span Span) error

	// Shutdown is called when the application stops, and should flush
	// anything still buffered.
	Shutdown(ctx context.Context) error

	// ForceFlush immediately delivers all queued traces and spans.
	ForceFlush(ctx context.Context) error
}

// Exporter delivers traces and spans to their final destination.
// Every item passed to Export is either a Trace or a Span.
type Exporter interface {
	Export(ctx context.Context, items []any) error
}

// MultiProcessor fans each callback out to every registered Processor,
// in registration order, joining their errors.
type MultiProcessor struct {
	mu         sync.RWMutex
	processors []Processor
}

func NewMultiProcessor() *MultiProcessor {
	return &MultiProcessor{}
}

// AddProcessor registers an additional processor.
func (m *MultiProcessor) AddProcessor(processor Processor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processors = append(m.processors, processor)
}

// SetProcessors replaces the registered processors with the given ones.
func (m *MultiProcessor) SetProcessors(processors []Processor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processors = slices.Clone(processors)
}

func (m *MultiProcessor) each(fn func(Processor) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	for _, processor := range m.processors {
		errs = append(errs, fn(processor))
	}
	return errors.Join(errs...)
}

func (m *MultiProcessor) OnTraceStart(ctx context.Context, trace Trace) error {
	return m.each(func(p Processor) error { return p.OnTraceStart(ctx, trace) })
}

func (m *MultiProcessor) OnTraceEnd(ctx context.Context, trace Trace) error {
	return m.each(func(p Processor) error { return p.OnTraceEnd(ctx, trace) })
}

func (m *MultiProcessor) OnSpanStart(ctx context.Context, span Span) error {
	return m.each(func(p Processor) error { return p.OnSpanStart(ctx, span) })
}

func (m *MultiProcessor) OnSpanEnd(ctx context.Context, span Span) error {
	return m.each(func(p Processor) error { return p.OnSpanEnd(ctx, span) })
}

func (m *MultiProcessor) Shutdown(ctx context.Context) error {
	return m.each(func(p Processor) error { return p.Shutdown(ctx) })
}

func (m *MultiProcessor) ForceFlush(ctx context.Context) error {
	return m.each(func(p Processor) error { return p.ForceFlush(ctx) })
}
