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

// SpanData represents span data in the trace.
type SpanData interface {
	// The Type of the span.
	Type() string

	// Export the span data as a map.
	Export() map[string]any
}

// AgentSpanData represents an Agent Span in the trace.
// Includes name, tools, and output type.
type AgentSpanData struct {
	// Mandatory name.
	Name string
	// Optional tools.
	Tools []string
	// Optional output type.
	OutputType string
}

func (AgentSpanData) Type() string { return "agent" }

func (sd AgentSpanData) Export() map[string]any {
	return map[string]any{
		"type":        sd.Type(),
		"name":        sd.Name,
		"tools":       sd.Tools,
		"output_type": nilIfEmpty(sd.OutputType),
	}
}

// FunctionSpanData represents a Function Span in the trace.
// Includes the serialized input and output of a function tool call.
type FunctionSpanData struct {
	// Mandatory name.
	Name string
	// Optional input.
	Input string
	// Optional output.
	Output string
}

func (FunctionSpanData) Type() string { return "function" }

func (sd FunctionSpanData) Export() map[string]any {
	return map[string]any{
		"type":   sd.Type(),
		"name":   sd.Name,
		"input":  nilIfEmpty(sd.Input),
		"output": nilIfEmpty(sd.Output),
	}
}

// GenerationSpanData represents a Generation Span in the trace.
// Includes input, output, model, model configuration, and usage.
type GenerationSpanData struct {
	// Optional input.
	Input []map[string]any
	// Optional output.
	Output []map[string]any
	// Optional model.
	Model string
	// Optional model configuration.
	ModelConfig map[string]any
	// Optional usage.
	Usage map[string]any
}

func (GenerationSpanData) Type() string { return "generation" }

func (sd GenerationSpanData) Export() map[string]any {
	return map[string]any{
		"type":         sd.Type(),
		"input":        sd.Input,
		"output":       sd.Output,
		"model":        nilIfEmpty(sd.Model),
		"model_config": sd.ModelConfig,
		"usage":        sd.Usage,
	}
}

// AuthorizationSpanData represents an Authorization Span in the trace.
// It records an OAuth authorization performed on behalf of an agent,
// such as a three-legged flow for Google Calendar or GitHub.
type AuthorizationSpanData struct {
	// Mandatory credential provider name, e.g. "google-cal-provider".
	Provider string
	// Optional scopes requested from the provider.
	Scopes []string
	// Optional flow type, e.g. "USER_FEDERATION" or "M2M".
	FlowType string
	// Optional final status of the flow: "completed" or "failed".
	Status string
}

func (AuthorizationSpanData) Type() string { return "authorization" }

func (sd AuthorizationSpanData) Export() map[string]any {
	return map[string]any{
		"type":      sd.Type(),
		"provider":  sd.Provider,
		"scopes":    sd.Scopes,
		"flow_type": nilIfEmpty(sd.FlowType),
		"status":    nilIfEmpty(sd.Status),
	}
}

// CustomSpanData represents a Custom Span in the trace.
// Includes name and data property bag.
type CustomSpanData struct {
	Name string
	Data map[string]any
}

func (CustomSpanData) Type() string { return "custom" }

func (sd CustomSpanData) Export() map[string]any {
	return map[string]any{
		"type": sd.Type(),
		"name": sd.Name,
		"data": sd.Data,
	}
}
