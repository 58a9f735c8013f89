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

package agents_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/agentstesting"
	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFirstRun(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
	}
	model.SetNextOutput(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("first"),
	})

	result, err := agents.Runner{}.Run(t.Context(), agent, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", result.Input)
	assert.Equal(t, "first", result.FinalOutput())
	require.Len(t, result.RawResponses, 1)
	assert.Equal(t, agentstesting.GetTextMessage("first"), result.RawResponses[0].Message)
	assert.Same(t, agent, result.LastAgent)

	model.SetNextOutput(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("second"),
	})

	result, err = agents.Runner{}.Run(t.Context(), agent, "another message")
	require.NoError(t, err)
	assert.Equal(t, "second", result.FinalOutput())
	require.Len(t, result.RawResponses, 1)
}

func TestToolCallRuns(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{
			agentstesting.GetFunctionTool("foo", "tool_result"),
		},
	}

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		// First turn: a tool call
		{Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("foo", `{"a": "b"}`),
		)},
		// Second turn: text message
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Runner{}.Run(t.Context(), agent, "user_message")
	require.NoError(t, err)
	assert.Equal(t, "done", result.FinalOutput())

	assert.Len(t, result.RawResponses, 2,
		"should have two responses: the first which produces a tool call, "+
			"and the second which handles the tool result")

	require.Len(t, result.ToolOutcomes, 1)
	assert.Equal(t, "foo", result.ToolOutcomes[0].Tool.Name)
	assert.Equal(t, "tool_result", result.ToolOutcomes[0].Output)
	assert.False(t, result.ToolOutcomes[0].AuthRequired)
}

func TestToolCallConversationGrows(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{
			agentstesting.GetFunctionTool("foo", "tool_result"),
		},
	}

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("foo", ""),
		)},
		{Value: agentstesting.GetTextMessage("done")},
	})

	_, err := agents.Runner{}.Run(t.Context(), agent, "user_message")
	require.NoError(t, err)

	assert.Len(t, model.LastTurnArgs.Input, 3,
		"second turn should see the original input, the tool call, and the tool result")
}

func TestSystemInstructionsArePassedToModel(t *testing.T) {
	model := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("ok"),
	})
	agent := &agents.Agent{
		Name:         "test",
		Instructions: agents.InstructionsStr("You are a calendar assistant."),
		Model:        param.NewOpt(agents.NewAgentModel(model)),
	}

	_, err := agents.Runner{}.Run(t.Context(), agent, "hi")
	require.NoError(t, err)

	assert.Equal(t, param.NewOpt("You are a calendar assistant."), model.LastTurnArgs.SystemInstructions)
}

func TestAuthorizationRequiredDetectionFromJSON(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{
			agentstesting.GetFunctionTool(
				"calendar_events",
				`{"error": "Authentication required. No access token provided.", "auth_required": true, "events": []}`,
			),
		},
	}

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("calendar_events", ""),
		)},
		{Value: agentstesting.GetTextMessage("authentication required")},
	})

	result, err := agents.Runner{}.Run(t.Context(), agent, "list my events")
	require.NoError(t, err)

	require.Len(t, result.ToolOutcomes, 1)
	assert.True(t, result.ToolOutcomes[0].AuthRequired)
	assert.True(t, result.AuthorizationRequired())
}

type reporterOutput struct {
	Message      string `json:"message"`
	AuthRequired bool   `json:"auth_required"`
}

func (o reporterOutput) AuthorizationRequired() bool { return o.AuthRequired }

func TestAuthorizationRequiredDetectionFromReporter(t *testing.T) {
	tool := agents.FunctionTool{
		Name: "github_repos",
		ParamsJSONSchema: map[string]any{
			"title":                "github_repos_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(context.Context, string) (any, error) {
			return reporterOutput{Message: "token missing", AuthRequired: true}, nil
		},
	}

	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{tool},
	}

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("github_repos", ""),
		)},
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Runner{}.Run(t.Context(), agent, "show my repos")
	require.NoError(t, err)

	require.Len(t, result.ToolOutcomes, 1)
	assert.True(t, result.ToolOutcomes[0].AuthRequired)
	assert.True(t, result.AuthorizationRequired())
}

func TestNonStreamedMaxTurns(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := &agents.Agent{
		Name:  "test_1",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{
			agentstesting.GetFunctionTool("some_function", "result"),
		},
	}

	for range 5 {
		model.SetNextOutput(agentstesting.FakeModelTurnOutput{
			Value: agentstesting.GetToolCallMessage(
				agentstesting.GetFunctionToolCall("some_function", `{"a": "b"}`),
			),
		})
	}

	_, err := agents.Runner{Config: agents.RunConfig{MaxTurns: 3}}.Run(t.Context(), agent, "user_message")
	assert.ErrorContains(t, err, "max turns 3 exceeded")
}

func TestToolNotFoundCausesError(t *testing.T) {
	model := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("missing_tool", ""),
		),
	})
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
	}

	_, err := agents.Runner{}.Run(t.Context(), agent, "user_message")
	assert.ErrorContains(t, err, "tool missing_tool not found in agent test")
}

func TestToolErrorPropagates(t *testing.T) {
	toolErr := errors.New("boom")
	model := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("failing_tool", ""),
		),
	})
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
		Tools: []agents.Tool{
			agentstesting.GetFunctionToolErr("failing_tool", toolErr),
		},
	}

	_, err := agents.Runner{}.Run(t.Context(), agent, "user_message")
	require.Error(t, err)
	assert.ErrorIs(t, err, toolErr)
	assert.ErrorContains(t, err, "error running tool failing_tool")
}

func TestModelErrorPropagates(t *testing.T) {
	modelErr := errors.New("model exploded")
	model := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Error: modelErr,
	})
	agent := &agents.Agent{
		Name:  "test",
		Model: param.NewOpt(agents.NewAgentModel(model)),
	}

	_, err := agents.Runner{}.Run(t.Context(), agent, "user_message")
	assert.ErrorIs(t, err, modelErr)
}

func TestNilAgentCausesError(t *testing.T) {
	_, err := agents.Runner{}.Run(t.Context(), nil, "user_message")
	assert.ErrorContains(t, err, "agent must not be nil")
}

func TestRunAddsUsageToExistingContext(t *testing.T) {
	model := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("hello"),
	})
	model.SetHardcodedUsage(usage.Usage{Requests: 1, InputTokens: 5, OutputTokens: 3, TotalTokens: 8})

	agent := agents.New("test").WithModelInstance(model)

	tracker := usage.NewUsage()
	ctx := usage.NewContext(context.Background(), tracker)

	_, err := agents.Run(ctx, agent, "hi")
	require.NoError(t, err)

	assert.Equal(t, uint64(1), tracker.Requests)
	assert.Equal(t, uint64(5), tracker.InputTokens)
	assert.Equal(t, uint64(3), tracker.OutputTokens)
	assert.Equal(t, uint64(8), tracker.TotalTokens)
}

func TestRunResultUsageAggregatesResponses(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	model.SetHardcodedUsage(usage.Usage{Requests: 1, InputTokens: 2, OutputTokens: 4, TotalTokens: 6})

	agent := agents.New("test").
		WithModelInstance(model).
		WithTools(agentstesting.GetFunctionTool("some_function", "result"))

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallMessage(
			agentstesting.GetFunctionToolCall("some_function", ""),
		)},
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Run(t.Context(), agent, "user_message")
	require.NoError(t, err)

	total := result.Usage()
	assert.Equal(t, uint64(2), total.Requests)
	assert.Equal(t, uint64(4), total.InputTokens)
	assert.Equal(t, uint64(8), total.OutputTokens)
	assert.Equal(t, uint64(12), total.TotalTokens)
}

func TestRunConfigModelOverridesAgentModel(t *testing.T) {
	configModel := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("from config"),
	})
	agentModel := agentstesting.NewFakeModel(false, &agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("from agent"),
	})

	agent := agents.New("test").WithModelInstance(agentModel)

	runner := agents.Runner{Config: agents.RunConfig{
		Model: param.NewOpt(agents.NewAgentModel(configModel)),
	}}
	result, err := runner.Run(t.Context(), agent, "hi")
	require.NoError(t, err)
	assert.Equal(t, "from config", result.FinalOutput())
}

func TestMultipleToolCallsInOneTurn(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := agents.New("test").
		WithModelInstance(model).
		WithTools(
			agentstesting.GetFunctionTool("tool_1", "result_1"),
			agentstesting.GetFunctionTool("tool_2", "result_2"),
		)

	firstTurn := agentstesting.GetToolCallMessage(
		agentstesting.GetFunctionToolCall("tool_1", ""),
		agentstesting.GetFunctionToolCall("tool_2", ""),
	)
	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: firstTurn},
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Run(t.Context(), agent, "user_message")
	require.NoError(t, err)

	require.Len(t, result.ToolOutcomes, 2)
	assert.Equal(t, "result_1", result.ToolOutcomes[0].Output)
	assert.Equal(t, "result_2", result.ToolOutcomes[1].Output)
	assert.Len(t, model.LastTurnArgs.Input, 4,
		"second turn should see the original input, the tool call message, and two tool results")
}

func TestDefaultMaxTurnsIsApplied(t *testing.T) {
	model := agentstesting.NewFakeModel(false, nil)
	agent := agents.New("test").
		WithModelInstance(model).
		WithTools(agentstesting.GetFunctionTool("some_function", "result"))

	for i := range agents.DefaultMaxTurns + 1 {
		model.SetNextOutput(agentstesting.FakeModelTurnOutput{
			Value: agentstesting.GetToolCallMessage(
				agentstesting.GetFunctionToolCall("some_function", fmt.Sprintf(`{"i": %d}`, i)),
			),
		})
	}

	_, err := agents.Run(t.Context(), agent, "user_message")
	assert.ErrorContains(t, err, fmt.Sprintf("max turns %d exceeded", agents.DefaultMaxTurns))
}
