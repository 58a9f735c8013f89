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
	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2"
)

// RunResult contains the output of an agent run.
type RunResult struct {
	// The original input to the run.
	Input string

	// The raw LLM responses generated by the model during the run,
	// in order.
	RawResponses []*ModelResponse

	// The last assistant message generated by the model: the one without
	// tool calls that ended the loop.
	FinalMessage openai.ChatCompletionMessage

	// The outcomes of the function tools invoked during the run, in order.
	ToolOutcomes []ToolOutcome

	// The agent that produced the final message.
	LastAgent *Agent
}

// FinalOutput returns the text content of the final message.
func (r *RunResult) FinalOutput() string {
	return r.FinalMessage.Content
}

// AuthorizationRequired reports whether any tool invoked during the run
// signaled an authorization-required condition.
func (r *RunResult) AuthorizationRequired() bool {
	for _, outcome := range r.ToolOutcomes {
		if outcome.AuthRequired {
			return true
		}
	}
	return false
}

// Usage returns the total token usage accumulated over all model
// responses of the run.
func (r *RunResult) Usage() *usage.Usage {
	total := usage.NewUsage()
	for _, response := range r.RawResponses {
		total.Add(response.Usage)
	}
	return total
}
