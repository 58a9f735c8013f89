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

// Package traceloop forwards traces and spans to the Traceloop observability
// platform.
package traceloop

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/nlpodyssey/agent-identity-go/tracing"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

// TracingProcessor implements tracing.Processor to send traces to Traceloop
type TracingProcessor struct {
	client *sdk.Traceloop

	// Track workflows and tasks for parent-child relationships
	workflows map[string]*sdk.Workflow
	tasks     map[string]*sdk.Task
	llmSpans  map[string]*sdk.LLMSpan
	mu        sync.RWMutex
}

// ProcessorParams configuration for the Traceloop processor
type ProcessorParams struct {
	// Traceloop API key. Required - pass from main
	APIKey string
	// Traceloop Base URL. Defaults to api.traceloop.com
	BaseURL string
	// Optional metadata to attach to all workflows
	Metadata map[string]any
	// Optional tags to attach to all workflows
	Tags []string
}

// NewTracingProcessor creates a new Traceloop tracing processor
func NewTracingProcessor(ctx context.Context, params ProcessorParams) (*TracingProcessor, error) {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = "api.traceloop.com"
	}

	client, err := sdk.NewClient(ctx, sdk.Config{
		BaseURL: baseURL,
		APIKey:  params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Traceloop client: %w", err)
	}

	return &TracingProcessor{
		client:    client,
		workflows: make(map[string]*sdk.Workflow),
		tasks:     make(map[string]*sdk.Task),
		llmSpans:  make(map[string]*sdk.LLMSpan),
	}, nil
}

// OnTraceStart implements tracing.Processor
func (p *TracingProcessor) OnTraceStart(ctx context.Context, trace tracing.Trace) error {
	if p.client == nil {
		fmt.Fprintf(os.Stderr, "Traceloop client not initialized, skipping trace export\n")
		return nil
	}

	workflowName := trace.Name()
	if workflowName == "" {
		workflowName = "Agent workflow"
	}

	attrs := sdk.WorkflowAttributes{
		Name: workflowName,
	}

	// Add metadata from trace
	if traceDict := trace.Export(); traceDict != nil {
		if metadata, ok := traceDict["metadata"].(map[string]string); ok {
			for k, v := range metadata {
				attrs.AssociationProperties[k] = v
			}
		}
	}

	workflow := p.client.NewWorkflow(ctx, attrs)

	p.mu.Lock()
	p.workflows[trace.TraceID()] = workflow
	p.mu.Unlock()

	return nil
}

// OnTraceEnd implements tracing.Processor
func (p *TracingProcessor) OnTraceEnd(ctx context.Context, trace tracing.Trace) error {
	if p.client == nil {
		return nil
	}

	p.mu.Lock()
	workflow, exists := p.workflows[trace.TraceID()]
	if exists {
		delete(p.workflows, trace.TraceID())
	}
	p.mu.Unlock()

	if exists && workflow != nil {
		workflow.End()
	}

	return nil
}

// OnSpanStart implements tracing.Processor
func (p *TracingProcessor) OnSpanStart(ctx context.Context, span tracing.Span) error {
	if p.client == nil {
		return nil
	}

	// Find parent workflow
	p.mu.RLock()
	workflow := p.workflows[span.TraceID()]
	p.mu.RUnlock()

	if workflow == nil {
		fmt.Fprintf(os.Stderr, "No workflow found for span, skipping: %s\n", span.SpanID())
		return nil
	}

	taskName := p.getTaskName(span)
	task := workflow.NewTask(taskName)

	p.mu.Lock()
	p.tasks[span.SpanID()] = task
	p.mu.Unlock()

	// For generation spans, start logging the prompt
	if p.isLLMSpan(span) {
		prompt := p.extractPrompt(span)
		if prompt != nil {
			llmSpan, err := task.LogPrompt(*prompt)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to log prompt: %v\n", err)
				return err
			}

			p.mu.Lock()
			p.llmSpans[span.SpanID()] = &llmSpan
			p.mu.Unlock()
		}
	}

	return nil
}

// OnSpanEnd implements tracing.Processor
func (p *TracingProcessor) OnSpanEnd(ctx context.Context, span tracing.Span) error {
	if p.client == nil {
		return nil
	}

	p.mu.Lock()
	task, taskExists := p.tasks[span.SpanID()]
	llmSpan, llmExists := p.llmSpans[span.SpanID()]
	if taskExists {
		delete(p.tasks, span.SpanID())
	}
	if llmExists {
		delete(p.llmSpans, span.SpanID())
	}
	p.mu.Unlock()

	// Log completion for generation spans
	if llmExists && llmSpan != nil && p.isLLMSpan(span) {
		completion := p.extractCompletion(span)
		usage := p.extractUsage(span)

		if completion != nil {
			llmSpan.LogCompletion(ctx, *completion, usage)
		}
	}

	// End the task
	if taskExists && task != nil {
		task.End()
	}

	return nil
}

// Shutdown implements tracing.Processor
func (p *TracingProcessor) Shutdown(ctx context.Context) error {
	if p.client != nil {
		p.client.Shutdown(ctx)
	}
	return nil
}

// ForceFlush implements tracing.Processor
func (p *TracingProcessor) ForceFlush(ctx context.Context) error {
	// Traceloop SDK handles flushing internally
	return nil
}

// Helper methods

func (p *TracingProcessor) getTaskName(span tracing.Span) string {
	spanData := span.SpanData()
	if spanData == nil {
		return "unknown_task"
	}

	switch data := spanData.(type) {
	case *tracing.AgentSpanData:
		return fmt.Sprintf("agent_%s", data.Name)
	case *tracing.FunctionSpanData:
		return fmt.Sprintf("function_%s", data.Name)
	case *tracing.GenerationSpanData:
		if data.Model != "" {
			return fmt.Sprintf("llm_%s", data.Model)
		}
		return "llm_generation"
	case *tracing.AuthorizationSpanData:
		return fmt.Sprintf("authorization_%s", data.Provider)
	default:
		return spanData.Type()
	}
}

func (p *TracingProcessor) isLLMSpan(span tracing.Span) bool {
	spanData := span.SpanData()
	if spanData == nil {
		return false
	}

	_, ok := spanData.(*tracing.GenerationSpanData)
	return ok
}

func (p *TracingProcessor) extractPrompt(span tracing.Span) *sdk.Prompt {
	data, ok := span.SpanData().(*tracing.GenerationSpanData)
	if !ok {
		return nil
	}

	prompt := &sdk.Prompt{
		Vendor: "openai",
		Mode:   "chat",
	}

	if data.Model != "" {
		prompt.Model = data.Model
	}

	if data.Input != nil {
		prompt.Messages = p.convertMessagesToTraceloop(data.Input)
	}

	return prompt
}

func (p *TracingProcessor) extractCompletion(span tracing.Span) *sdk.Completion {
	data, ok := span.SpanData().(*tracing.GenerationSpanData)
	if !ok {
		return nil
	}

	completion := &sdk.Completion{}

	if data.Model != "" {
		completion.Model = data.Model
	}

	if data.Output != nil {
		completion.Messages = p.convertMessagesToTraceloop(data.Output)
	}

	return completion
}

func (p *TracingProcessor) extractUsage(span tracing.Span) sdk.Usage {
	data, ok := span.SpanData().(*tracing.GenerationSpanData)
	if !ok || data.Usage == nil {
		return sdk.Usage{}
	}

	usage := sdk.Usage{}

	if totalTokens, ok := data.Usage["total_tokens"].(int); ok {
		usage.TotalTokens = totalTokens
	}
	if promptTokens, ok := data.Usage["prompt_tokens"].(int); ok {
		usage.PromptTokens = promptTokens
	}
	if completionTokens, ok := data.Usage["completion_tokens"].(int); ok {
		usage.CompletionTokens = completionTokens
	}

	return usage
}

func (p *TracingProcessor) convertMessagesToTraceloop(input []map[string]any) []sdk.Message {
	if input == nil {
		return nil
	}

	messages := make([]sdk.Message, len(input))
	for i, msg := range input {
		content := ""
		role := "user"

		if c, ok := msg["content"].(string); ok {
			content = c
		}
		if r, ok := msg["role"].(string); ok {
			role = r
		}

		messages[i] = sdk.Message{
			Index:   i,
			Content: content,
			Role:    role,
		}
	}
	return messages
}
