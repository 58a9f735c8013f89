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
	"context"

	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/packages/param"
)

// Model is the base interface for calling an LLM.
type Model interface {
	// GetResponse returns the full model response from the model.
	GetResponse(context.Context, ModelGetResponseParams) (*ModelResponse, error)
}

type ModelGetResponseParams struct {
	// The system instructions to use.
	SystemInstructions param.Opt[string]

	// The conversation so far, in OpenAI Chat Completions format.
	Input []openai.ChatCompletionMessageParamUnion

	// The model settings to use.
	ModelSettings ModelSettings

	// The tools available to the model.
	Tools []Tool
}

// ModelResponse is the output of a single model call.
type ModelResponse struct {
	// The assistant message from the first choice.
	Message openai.ChatCompletionMessage

	// The usage information for the response.
	Usage *usage.Usage
}

// ModelProvider is the base interface for a model provider.
//
// A model provider is responsible for looking up Models by name.
type ModelProvider interface {
	GetModel(modelName string) (Model, error)
}
