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

	"github.com/openai/openai-go/v2/packages/param"
)

// FunctionTool is a tool that wraps a function.
type FunctionTool struct {
	// The name of the tool, as shown to the LLM. Generally the name of the function.
	Name string

	// A description of the tool, as shown to the LLM.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// A function that invokes the tool with the given context and the
	// arguments from the LLM, as a JSON string.
	//
	// You must return a value that can be serialized to a string for the
	// LLM. In case of errors, you can either return an error (which will
	// cause the run to fail) or return a string error message (which will
	// be sent back to the LLM).
	OnInvokeTool func(ctx context.Context, arguments string) (any, error)

	// Whether the JSON schema is in strict mode.
	// We **strongly** recommend setting this to True, as it increases the likelihood of correct JSON input.
	// Defaults to true if omitted.
	StrictJSONSchema param.Opt[bool]
}

// A Tool that can be used in an agent.
type Tool interface {
	isTool()
}

func (FunctionTool) isTool() {}

// AuthorizationReporter is implemented by tool outputs that can report an
// authorization-required condition. It lets callers detect that a tool
// could not proceed for lack of credentials without scanning free-form
// response text.
type AuthorizationReporter interface {
	AuthorizationRequired() bool
}

// ToolOutcome records the result of a single function tool invocation
// during a run.
type ToolOutcome struct {
	// The tool that was run.
	Tool FunctionTool

	// The output value returned by the tool.
	Output any

	// Whether the output reported an authorization-required condition,
	// either through AuthorizationReporter or through an
	// "auth_required" marker in a JSON output.
	AuthRequired bool
}
