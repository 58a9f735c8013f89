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
	"sync"
)

type scopeKey struct{}

// Scope holds the trace and span currently active on one logical execution
// path. It travels with the context, so concurrent agent runs (for example,
// separate HTTP requests handled by the same service) never observe each
// other's traces.
//
// The zero value is ready to use.
type Scope struct {
	mu    sync.Mutex
	trace Trace
	span  Span
}

// ActiveTrace returns the trace currently recorded in the scope, or nil.
func (s *Scope) ActiveTrace() Trace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trace
}

// ActiveSpan returns the span currently recorded in the scope, or nil.
func (s *Scope) ActiveSpan() Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.span
}

// SwapTrace records trace as active and returns the previous value.
func (s *Scope) SwapTrace(trace Trace) (previous Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, s.trace = s.trace, trace
	return previous
}

// SwapSpan records span as active and returns the previous value.
func (s *Scope) SwapSpan(span Span) (previous Span) {
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, s.span = s.span, span
	return previous
}

// fork returns a copy that starts out with the same active trace and span
// but sees none of the future updates.
func (s *Scope) fork() *Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Scope{trace: s.trace, span: s.span}
}

// ContextWithClonedOrNewScope returns a context carrying a fresh Scope.
// When ctx already has a Scope, the new one inherits its active trace and
// span; updates made through the child context stay invisible to the parent.
func ContextWithClonedOrNewScope(ctx context.Context) context.Context {
	scope, ok := ScopeFromContext(ctx)
	if !ok {
		return context.WithValue(ctx, scopeKey{}, new(Scope))
	}
	return context.WithValue(ctx, scopeKey{}, scope.fork())
}

// ScopeFromContext returns the Scope carried by ctx, if any.
func ScopeFromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*Scope)
	return scope, ok
}

// GetCurrentSpanFromContextScope returns the span active in the scope of
// ctx, or nil.
func GetCurrentSpanFromContextScope(ctx context.Context) Span {
	if scope, ok := ScopeFromContext(ctx); ok {
		return scope.ActiveSpan()
	}
	return nil
}

// SetCurrentSpanToContextScope makes span the active one in the scope of
// ctx, returning the span it replaces. It is a no-op when ctx carries no
// scope.
func SetCurrentSpanToContextScope(ctx context.Context, span Span) (previousSpan Span) {
	if scope, ok := ScopeFromContext(ctx); ok {
		return scope.SwapSpan(span)
	}
	return nil
}

// GetCurrentTraceFromContextScope returns the trace active in the scope of
// ctx, or nil.
func GetCurrentTraceFromContextScope(ctx context.Context) Trace {
	if scope, ok := ScopeFromContext(ctx); ok {
		return scope.ActiveTrace()
	}
	return nil
}

// SetCurrentTraceToContextScope makes trace the active one in the scope of
// ctx, returning the trace it replaces. It is a no-op when ctx carries no
// scope.
func SetCurrentTraceToContextScope(ctx context.Context, trace Trace) (previousTrace Trace) {
	if scope, ok := ScopeFromContext(ctx); ok {
		return scope.SwapTrace(trace)
	}
	return nil
}
