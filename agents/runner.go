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

package agents

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/agent-identity-go/tracing"
	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
)

// DefaultMaxTurns is the default maximum number of turns for a run.
const DefaultMaxTurns = 10

// DefaultWorkflowName is the default name assigned to the workflow trace
// when RunConfig.WorkflowName is empty.
const DefaultWorkflowName = "Agent workflow"

// RunConfig configures settings for the entire agent run.
type RunConfig struct {
	// The model to use for the entire agent run. If set, will override the
	// model set on every agent. The ModelProvider passed in below must be
	// able to resolve this model name.
	Model param.Opt[AgentModel]

	// The model provider to use when looking up string model names.
	// Defaults to OpenAI.
	ModelProvider ModelProvider

	// Configure global model settings. Any non-null values will override
	// the agent-specific model settings.
	ModelSettings ModelSettings

	// Whether tracing is disabled for the agent run. If disabled, we will
	// not trace the agent run.
	TracingDisabled bool

	// The name of the run, used for tracing. Should be a logical name for
	// the run, like "Calendar assistant" or "GitHub assistant".
	WorkflowName string

	// A custom trace ID to use for tracing. If not provided, we will
	// generate a new trace ID.
	TraceID string

	// A grouping identifier to use for tracing, to link multiple traces
	// from the same conversation or process. For example, you might use
	// a chat thread ID.
	GroupID string

	// An optional dictionary of additional metadata to include with the trace.
	TraceMetadata map[string]any

	// The maximum number of turns to run the agent for. A turn is defined
	// as one AI invocation, including any tool calls that might occur.
	// If zero, DefaultMaxTurns is used.
	MaxTurns uint64
}

// Runner drives the model/tool loop for an Agent.
type Runner struct {
	Config RunConfig
}

// DefaultRunner is a Runner with default configuration.
var DefaultRunner = Runner{}

// Run runs an agent with the given input until a final message is produced,
// using the default runner configuration.
//
// The agent runs in a loop until a final message is generated. The loop
// runs like so:
//  1. The agent is invoked with the given input.
//  2. If the model returns tool calls, we run the tools, append their
//     outputs to the conversation, and go to step 1.
//  3. If the model returns a plain message, the loop terminates and the
//     message becomes the final output.
//
// In two cases, the run may fail:
//  1. If the maximum number of turns is exceeded, a MaxTurnsExceededError
//     is returned.
//  2. If the model or a tool returns an error, it is returned as-is.
func Run(ctx context.Context, agent *Agent, input string) (*RunResult, error) {
	return DefaultRunner.Run(ctx, agent, input)
}

// Run runs an agent with the given input until a final message is produced.
// See the package-level Run function for details on the loop.
func (r Runner) Run(ctx context.Context, agent *Agent, input string) (*RunResult, error) {
	if agent == nil {
		return nil, fmt.Errorf("agent must not be nil")
	}

	var runResult *RunResult

	traceParams := tracing.TraceParams{
		WorkflowName: cmp.Or(r.Config.WorkflowName, DefaultWorkflowName),
		TraceID:      r.Config.TraceID,
		GroupID:      r.Config.GroupID,
		Metadata:     r.Config.TraceMetadata,
		Disabled:     r.Config.TracingDisabled,
	}
	err := manageTraceCtx(ctx, traceParams, func(ctx context.Context) (err error) {
		if u, ok := usage.FromContext(ctx); !ok || u == nil {
			ctx = usage.NewContext(ctx, usage.NewUsage())
		}

		model, err := r.getModel(agent)
		if err != nil {
			return err
		}

		maxTurns := r.Config.MaxTurns
		if maxTurns == 0 {
			maxTurns = DefaultMaxTurns
		}

		var systemInstructions param.Opt[string]
		if agent.Instructions != nil {
			instructions, err := agent.Instructions.GetInstructions(ctx, agent)
			if err != nil {
				return err
			}
			systemInstructions = param.NewOpt(instructions)
		}

		functionTools := agent.FunctionTools()
		toolNames := make([]string, len(functionTools))
		for i, tool := range functionTools {
			toolNames[i] = tool.Name
		}

		// The agent span covers the whole loop and is ended when the
		// loop ends, successfully or not.
		currentSpan := tracing.NewAgentSpan(ctx, tracing.AgentSpanParams{
			Name:       agent.Name,
			Tools:      toolNames,
			OutputType: "string",
		})
		if err = currentSpan.Start(ctx, true); err != nil {
			return err
		}
		defer func() {
			if e := currentSpan.Finish(ctx, true); e != nil {
				err = errors.Join(err, e)
			}
		}()

		conversation := []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(input),
		}

		var (
			currentTurn  uint64
			rawResponses []*ModelResponse
			toolOutcomes []ToolOutcome
		)

		for {
			currentTurn += 1
			if currentTurn > maxTurns {
				AttachErrorToSpan(currentSpan, tracing.SpanError{
					Message: "Max turns exceeded",
					Data:    map[string]any{"max_turns": maxTurns},
				})
				return MaxTurnsExceededErrorf("max turns %d exceeded", maxTurns)
			}
			Logger().Debug(
				"Running agent",
				slog.String("agentName", agent.Name),
				slog.Uint64("turn", currentTurn),
			)

			response, err := model.GetResponse(ctx, ModelGetResponseParams{
				SystemInstructions: systemInstructions,
				Input:              conversation,
				ModelSettings:      agent.ModelSettings.Resolve(r.Config.ModelSettings),
				Tools:              agent.Tools,
			})
			if err != nil {
				return err
			}
			rawResponses = append(rawResponses, response)
			if u, ok := usage.FromContext(ctx); ok && u != nil {
				u.Add(response.Usage)
			}

			message := response.Message
			conversation = append(conversation, message.ToParam())

			if len(message.ToolCalls) == 0 {
				runResult = &RunResult{
					Input:        input,
					RawResponses: rawResponses,
					FinalMessage: message,
					ToolOutcomes: toolOutcomes,
					LastAgent:    agent,
				}
				return nil
			}

			for _, toolCall := range message.ToolCalls {
				outcome, serialized, err := r.runFunctionTool(ctx, agent, toolCall)
				if err != nil {
					return err
				}
				toolOutcomes = append(toolOutcomes, outcome)
				conversation = append(conversation, openai.ToolMessage(serialized, toolCall.ID))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return runResult, nil
}

// manageTraceCtx runs fn under the currently active trace if there is one,
// otherwise it wraps fn in a new trace created from params.
func manageTraceCtx(ctx context.Context, params tracing.TraceParams, fn func(context.Context) error) error {
	if tracing.GetCurrentTrace(ctx) != nil {
		return fn(ctx)
	}
	return tracing.RunTrace(ctx, params, func(ctx context.Context, _ tracing.Trace) error {
		return fn(ctx)
	})
}

func (r Runner) getModel(agent *Agent) (Model, error) {
	modelProvider := r.Config.ModelProvider
	if modelProvider == nil {
		modelProvider = NewOpenAIProvider(OpenAIProviderParams{})
	}

	if r.Config.Model.Valid() {
		runConfigModel := r.Config.Model.Value
		if v, ok := runConfigModel.SafeModel(); ok {
			return v, nil
		}
		return modelProvider.GetModel(runConfigModel.ModelName())
	}

	if agent.Model.Valid() {
		agentModel := agent.Model.Value
		if v, ok := agentModel.SafeModel(); ok {
			return v, nil
		}
		return modelProvider.GetModel(agentModel.ModelName())
	}

	return modelProvider.GetModel("")
}

// runFunctionTool executes a single tool call requested by the model and
// returns the outcome together with the serialized output to send back to
// the model.
func (r Runner) runFunctionTool(
	ctx context.Context,
	agent *Agent,
	toolCall openai.ChatCompletionMessageToolCallUnion,
) (outcome ToolOutcome, serialized string, err error) {
	name := toolCall.Function.Name
	arguments := toolCall.Function.Arguments

	tool, ok := findFunctionTool(agent, name)
	if !ok {
		return ToolOutcome{}, "", ModelBehaviorErrorf("tool %s not found in agent %s", name, agent.Name)
	}

	spanParams := tracing.FunctionSpanParams{Name: name}
	if !DontLogToolData {
		spanParams.Input = arguments
	}
	err = tracing.FunctionSpan(ctx, spanParams, func(ctx context.Context, span tracing.Span) error {
		if DontLogToolData {
			Logger().Debug("Invoking tool", slog.String("toolName", name))
		} else {
			Logger().Debug("Invoking tool",
				slog.String("toolName", name),
				slog.String("arguments", arguments))
		}

		output, err := tool.OnInvokeTool(ctx, arguments)
		if err != nil {
			AttachErrorToSpan(span, tracing.SpanError{
				Message: "Error running tool",
				Data:    map[string]any{"tool_name": name, "error": err.Error()},
			})
			return AgentsErrorf("error running tool %s: %w", name, err)
		}

		serialized, err = stringifyToolOutput(output)
		if err != nil {
			return err
		}

		if DontLogToolData {
			Logger().Debug("Tool completed", slog.String("toolName", name))
		} else {
			Logger().Debug("Tool completed",
				slog.String("toolName", name),
				slog.String("output", serialized))
		}

		if spanData, ok := span.SpanData().(*tracing.FunctionSpanData); ok && !DontLogToolData {
			spanData.Output = serialized
		}

		outcome = ToolOutcome{
			Tool:         tool,
			Output:       output,
			AuthRequired: reportsAuthorizationRequired(output, serialized),
		}
		return nil
	})
	if err != nil {
		return ToolOutcome{}, "", err
	}
	return outcome, serialized, nil
}

func findFunctionTool(agent *Agent, name string) (FunctionTool, bool) {
	for _, tool := range agent.FunctionTools() {
		if tool.Name == name {
			return tool, true
		}
	}
	return FunctionTool{}, false
}

// stringifyToolOutput converts a tool's output value into the string sent
// back to the model: nil becomes the empty string, strings are passed
// through unchanged, and anything else is JSON-marshaled.
func stringifyToolOutput(output any) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", UserErrorf("failed to JSON-marshal tool output of type %T: %w", output, err)
		}
		return string(b), nil
	}
}

// reportsAuthorizationRequired detects an authorization-required condition
// in a tool's output: structured outputs implementing AuthorizationReporter
// are asked directly, otherwise the serialized output is probed for an
// "auth_required" JSON marker.
func reportsAuthorizationRequired(output any, serialized string) bool {
	if reporter, ok := output.(AuthorizationReporter); ok {
		return reporter.AuthorizationRequired()
	}
	var probe struct {
		AuthRequired bool `json:"auth_required"`
	}
	if err := json.Unmarshal([]byte(serialized), &probe); err != nil {
		return false
	}
	return probe.AuthRequired
}
