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

// Package agentstesting provides fake models and fixture helpers for
// testing agent runs without calling a real LLM.
package agentstesting

import (
	"context"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/shared/constant"
)

// GetTextMessage returns an assistant message with plain text content.
func GetTextMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Content: content,
		Role:    constant.ValueOf[constant.Assistant](),
	}
}

// GetFunctionToolCall returns a function tool call with the given name and
// arguments.
func GetFunctionToolCall(name string, arguments string) openai.ChatCompletionMessageToolCallUnion {
	return openai.ChatCompletionMessageToolCallUnion{
		ID:   "1",
		Type: "function",
		Function: openai.ChatCompletionMessageFunctionToolCallFunction{
			Name:      name,
			Arguments: arguments,
		},
	}
}

// GetToolCallMessage returns an assistant message carrying the given tool
// calls and no text content.
func GetToolCallMessage(toolCalls ...openai.ChatCompletionMessageToolCallUnion) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:      constant.ValueOf[constant.Assistant](),
		ToolCalls: toolCalls,
	}
}

// GetFunctionTool returns a function tool without parameters which always
// succeeds, returning the given value.
func GetFunctionTool(name string, returnValue string) agents.FunctionTool {
	return agents.FunctionTool{
		Name: name,
		ParamsJSONSchema: map[string]any{
			"title":                name + "_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(context.Context, string) (any, error) {
			return returnValue, nil
		},
	}
}

// GetFunctionToolErr returns a function tool without parameters which
// always fails with the given error.
func GetFunctionToolErr(name string, returnErr error) agents.FunctionTool {
	return agents.FunctionTool{
		Name: name,
		ParamsJSONSchema: map[string]any{
			"title":                name + "_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(context.Context, string) (any, error) {
			return nil, returnErr
		},
	}
}
