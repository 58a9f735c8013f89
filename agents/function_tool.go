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
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/xeipuuv/gojsonschema"
)

// NewFunctionTool creates a FunctionTool with automatic JSON schema generation.
//
// This helper function simplifies tool creation by automatically generating the
// JSON schema from the Go type T (input arguments).
// The schema is generated using struct tags and Go reflection.
//
// Type parameters:
//   - T: The input argument type (must be JSON-serializable)
//   - R: The return value type (must be JSON-serializable)
//
// Parameters:
//   - name: The tool name as shown to the LLM
//   - description: Optional tool description. If empty, no description is added
//   - handler: Function that processes the tool invocation
//
// Schema generation behavior:
//   - Automatically reads and applies `jsonschema` struct tags for schema customization (e.g., `jsonschema:"enum=value1,enum=value2"`)
//   - Enables strict JSON schema mode by default
//   - Arguments from the LLM are validated against the generated schema
//     before being unmarshaled into T
//
// Example:
//
//	type EventsArgs struct {
//	    CalendarID string `json:"calendar_id"`
//	}
//
//	type EventsResult struct {
//	    Events []string `json:"events"`
//	}
//
//	func listEvents(ctx context.Context, args EventsArgs) (EventsResult, error) {
//	    // Implementation here
//	    return EventsResult{Events: []string{"standup"}}, nil
//	}
//
//	// Create tool with auto-generated schema
//	tool := NewFunctionTool("list_events", "List calendar events", listEvents)
//
// The handler's typed return value is preserved as the tool output, so
// outputs implementing AuthorizationReporter keep their structured
// authorization signal; the Runner serializes the value when sending it
// back to the model.
//
// For more control over the schema, create a FunctionTool manually instead.
func NewFunctionTool[T, R any](name string, description string, handler func(ctx context.Context, args T) (R, error)) FunctionTool {
	reflector := &jsonschema.Reflector{
		ExpandedStruct:             true,
		RequiredFromJSONSchemaTags: false,
		AllowAdditionalProperties:  false,
	}

	var zero T
	schema := reflector.Reflect(&zero)

	schemaBytes, _ := json.Marshal(schema)
	var schemaMap map[string]any
	json.Unmarshal(schemaBytes, &schemaMap)

	// Add description at the top level if provided
	if description != "" && schemaMap != nil {
		schemaMap["description"] = description
	}

	compiledSchema, _ := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))

	return FunctionTool{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: schemaMap,
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			if arguments == "" {
				arguments = "{}"
			}
			if compiledSchema != nil {
				if err := ValidateJSON(ctx, compiledSchema, arguments); err != nil {
					return nil, err
				}
			}
			var args T
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments: %w", err)
			}
			return handler(ctx, args)
		},
	}
}
