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

package agentstesting

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/tracing"
	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
)

// FakeModel is a Model implementation that replays canned turn outputs.
type FakeModel struct {
	TracingEnabled bool
	TurnOutputs    []FakeModelTurnOutput
	LastTurnArgs   FakeModelLastTurnArgs
	HardcodedUsage *usage.Usage
}

// FakeModelTurnOutput is the canned result of one model turn: either an
// assistant message or an error.
type FakeModelTurnOutput struct {
	Value openai.ChatCompletionMessage
	Error error
}

// FakeModelLastTurnArgs records the parameters of the most recent
// GetResponse call.
type FakeModelLastTurnArgs struct {
	SystemInstructions param.Opt[string]
	Input              []openai.ChatCompletionMessageParamUnion
	ModelSettings      agents.ModelSettings
	Tools              []agents.Tool
}

func NewFakeModel(tracingEnabled bool, initialOutput *FakeModelTurnOutput) *FakeModel {
	var turnOutputs []FakeModelTurnOutput
	if initialOutput != nil && !reflect.ValueOf(*initialOutput).IsZero() {
		turnOutputs = []FakeModelTurnOutput{*initialOutput}
	}

	return &FakeModel{
		TracingEnabled: tracingEnabled,
		TurnOutputs:    turnOutputs,
	}
}

func (m *FakeModel) SetHardcodedUsage(u usage.Usage) {
	m.HardcodedUsage = &u
}

func (m *FakeModel) SetNextOutput(output FakeModelTurnOutput) {
	m.TurnOutputs = append(m.TurnOutputs, output)
}

func (m *FakeModel) AddMultipleTurnOutputs(outputs []FakeModelTurnOutput) {
	m.TurnOutputs = append(m.TurnOutputs, outputs...)
}

func (m *FakeModel) GetNextOutput() FakeModelTurnOutput {
	if len(m.TurnOutputs) == 0 {
		return FakeModelTurnOutput{}
	}
	v := m.TurnOutputs[0]
	m.TurnOutputs = m.TurnOutputs[1:]
	return v
}

func (m *FakeModel) GetResponse(ctx context.Context, params agents.ModelGetResponseParams) (*agents.ModelResponse, error) {
	m.LastTurnArgs = FakeModelLastTurnArgs{
		SystemInstructions: params.SystemInstructions,
		Input:              params.Input,
		ModelSettings:      params.ModelSettings,
		Tools:              params.Tools,
	}

	var modelResponse *agents.ModelResponse
	err := tracing.GenerationSpan(
		ctx, tracing.GenerationSpanParams{Disabled: !m.TracingEnabled},
		func(ctx context.Context, span tracing.Span) error {
			output := m.GetNextOutput()

			if err := output.Error; err != nil {
				span.SetError(tracing.SpanError{
					Message: "Error",
					Data: map[string]any{
						"name":    fmt.Sprintf("%T", err),
						"message": err.Error(),
					},
				})
				return err
			}

			u := m.HardcodedUsage
			if u == nil {
				u = usage.NewUsage()
			}

			modelResponse = &agents.ModelResponse{
				Message: output.Value,
				Usage:   u,
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return modelResponse, nil
}
