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

// Package agents provides a compact agent layer on the OpenAI Chat
// Completions API: an Agent is a model configured with instructions and
// function tools, and a Runner drives the model/tool loop until the model
// produces a plain message.
package agents

import (
	"github.com/openai/openai-go/v2/packages/param"
)

// An Agent is an AI model configured with instructions and tools.
//
// We strongly recommend passing Instructions, which is the "system prompt"
// for the agent: it describes what the agent should do and how it responds.
type Agent struct {
	// The name of the agent.
	Name string

	// Optional instructions for the agent. Will be used as the "system prompt"
	// when this agent is invoked.
	Instructions InstructionsGetter

	// The model implementation to use when invoking the LLM.
	Model param.Opt[AgentModel]

	// Configures model-specific tuning parameters (e.g. temperature, top_p).
	ModelSettings ModelSettings

	// A list of tools that the agent can use.
	Tools []Tool
}

// FunctionTools returns the agent's function tools.
func (a *Agent) FunctionTools() []FunctionTool {
	var fts []FunctionTool
	for _, tool := range a.Tools {
		if ft, ok := tool.(FunctionTool); ok {
			fts = append(fts, ft)
		}
	}
	return fts
}

// AgentModel is either the name of a model to resolve through a
// ModelProvider, or a concrete Model instance.
type AgentModel struct {
	s *string
	m *Model
}

func NewAgentModelName(modelName string) AgentModel {
	return AgentModel{s: &modelName}
}

func NewAgentModel(m Model) AgentModel {
	if m == nil {
		panic("Model cannot be nil")
	}
	return AgentModel{m: &m}
}

func (am AgentModel) IsModelName() bool {
	return am.s != nil
}

func (am AgentModel) IsModel() bool {
	return am.m != nil
}

func (am AgentModel) SafeModelName() (string, bool) {
	if am.IsModelName() {
		return *am.s, true
	}
	return "", false
}

func (am AgentModel) SafeModel() (Model, bool) {
	if am.IsModel() {
		return *am.m, true
	}
	return nil, false
}

func (am AgentModel) ModelName() string {
	if !am.IsModelName() {
		panic("AgentModel is not of type ModelName")
	}
	return *am.s
}

func (am AgentModel) Model() Model {
	if !am.IsModel() {
		panic("AgentModel is not of type Model")
	}
	return *am.m
}
