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

// Package tracing records traces and spans for agent runs.
//
// A Trace represents one logical workflow (for example, a single agent
// invocation handled by a service). Spans nest inside the trace and capture
// individual steps: an agent turn loop, a function tool call, a model
// generation, or a three-legged OAuth authorization performed on behalf of
// the agent.
//
// Traces and spans are delivered to registered Processor implementations.
// The default processor batches items and exports them to the OpenAI traces
// backend; additional processors (console, Traceloop, in-memory for tests)
// can be added with AddTraceProcessor or SetTraceProcessors.
package tracing

import (
	"errors"
	"sync/atomic"
)

var globalTraceProvider atomic.Pointer[TraceProvider]

// SetTraceProvider sets the global trace provider used by tracing utilities.
// A nil value is ignored.
func SetTraceProvider(provider TraceProvider) {
	if provider != nil {
		globalTraceProvider.Store(&provider)
	}
}

// GetTraceProvider returns the global trace provider used by tracing utilities.
// It panics if a trace provider is not set.
// Use SafeGetTraceProvider for a safer alternative.
func GetTraceProvider() TraceProvider {
	v, ok := SafeGetTraceProvider()
	if !ok {
		panic(errors.New("trace provider not set"))
	}
	return v
}

// SafeGetTraceProvider returns the global trace provider used by tracing utilities.
func SafeGetTraceProvider() (TraceProvider, bool) {
	v := globalTraceProvider.Load()
	if v == nil || *v == nil {
		return nil, false
	}
	return *v, true
}

// AddTraceProcessor registers an additional processor with the global
// provider. It will receive every trace and span alongside the processors
// already registered.
func AddTraceProcessor(spanProcessor Processor) {
	GetTraceProvider().RegisterProcessor(spanProcessor)
}

// SetTraceProcessors replaces the global provider's processors, including
// the default backend one, with the given ones.
func SetTraceProcessors(processors []Processor) {
	GetTraceProvider().SetProcessors(processors)
}

// SetTracingDisabled turns tracing off, or back on, for the whole process.
func SetTracingDisabled(disabled bool) {
	GetTraceProvider().SetDisabled(disabled)
}

// SetTracingExportAPIKey sets the OpenAI API key used by the default
// backend exporter.
func SetTracingExportAPIKey(apiKey string) {
	DefaultExporter().SetAPIKey(apiKey)
}

func init() {
	SetTraceProvider(NewDefaultTraceProvider())
	AddTraceProcessor(DefaultProcessor())
}
