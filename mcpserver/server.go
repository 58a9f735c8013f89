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

// Package mcpserver exposes the identity-aware toolkits over the Model
// Context Protocol, so MCP-speaking agent hosts can call the same
// authorized tools the in-process runner uses.
//
// Each tool call resolves its access token through a CredentialSource
// before running. When no usable token exists, the tool answers with its
// authorization-required marker as ordinary text content, never as a
// protocol error.
package mcpserver

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/identity"
)

// DefaultServerName identifies the server to MCP clients when no name is
// configured.
const DefaultServerName = "agent-identity-toolkits"

// A Toolkit pairs a function tool with the identity provider whose
// credentials it consumes.
type Toolkit interface {
	Provider() string
	Tool() agents.FunctionTool
}

// Server serves function tools to MCP clients.
type Server struct {
	server      *mcp.Server
	credentials CredentialSource
}

type ServerParams struct {
	// Name identifies the server to MCP clients.
	// Defaults to DefaultServerName.
	Name string

	// Version is reported to MCP clients during initialization.
	Version string

	// Toolkits to expose as MCP tools.
	Toolkits []Toolkit

	// Credentials resolves access tokens before each tool call. Optional:
	// without a source every tool call runs unauthenticated and reports
	// that authorization is required.
	Credentials CredentialSource
}

// NewServer creates a Server with all toolkit tools registered.
func NewServer(params ServerParams) (*Server, error) {
	impl := &mcp.Implementation{
		Name:    cmp.Or(params.Name, DefaultServerName),
		Version: params.Version,
	}
	s := &Server{
		server:      mcp.NewServer(impl, nil),
		credentials: params.Credentials,
	}

	seen := make(map[string]struct{}, len(params.Toolkits))
	for _, toolkit := range params.Toolkits {
		tool := toolkit.Tool()
		if tool.Name == "" {
			return nil, errors.New("toolkit returned a tool without a name")
		}
		if _, ok := seen[tool.Name]; ok {
			return nil, fmt.Errorf("duplicate tool name %q", tool.Name)
		}
		seen[tool.Name] = struct{}{}

		if err := s.register(toolkit.Provider(), tool); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Run serves MCP requests over the transport until the client
// disconnects or the context is canceled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// RunStdio serves MCP requests on stdin/stdout.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) register(provider string, tool agents.FunctionTool) error {
	schema, err := toolInputSchema(tool)
	if err != nil {
		return err
	}
	mcp.AddTool(
		s.server,
		&mcp.Tool{Name: tool.Name, Description: tool.Description, InputSchema: schema},
		func(ctx context.Context, _ *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, *struct{}, error) {
			return s.callTool(ctx, provider, tool, args)
		},
	)
	return nil
}

func (s *Server) callTool(ctx context.Context, provider string, tool agents.FunctionTool, args map[string]any) (*mcp.CallToolResult, *struct{}, error) {
	ctx = s.withRequestCredentials(ctx, provider)

	arguments := ""
	if len(args) > 0 {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to JSON-marshal arguments of tool %s: %w", tool.Name, err)
		}
		arguments = string(b)
	}

	output, err := tool.OnInvokeTool(ctx, arguments)
	if err != nil {
		Logger().Error("Tool invocation failed",
			slog.String("toolName", tool.Name),
			slog.String("error", err.Error()))
		return &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		}, nil, nil
	}

	text, err := stringifyOutput(tool.Name, output)
	if err != nil {
		return nil, nil, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// withRequestCredentials seeds the context with a fresh per-call
// credential store, populated from the credential source when it holds a
// usable token. Lookup failures are logged and treated as a missing
// credential, so the tool reports that authorization is required instead
// of failing the call.
func (s *Server) withRequestCredentials(ctx context.Context, provider string) context.Context {
	credentials := identity.NewCredentials()
	if s.credentials != nil {
		token, err := s.credentials.AccessToken(ctx, provider)
		switch {
		case err != nil:
			Logger().Warn("Credential lookup failed",
				slog.String("provider", provider),
				slog.String("error", err.Error()))
		case token != "":
			credentials.Set(provider, token)
		}
	}
	return identity.WithRequestCredentials(ctx, credentials)
}

// toolInputSchema converts the tool's map-based JSON schema into the
// form the MCP SDK serves.
func toolInputSchema(tool agents.FunctionTool) (*jsonschema.Schema, error) {
	source := tool.ParamsJSONSchema
	if len(source) == 0 {
		source = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	b, err := json.Marshal(source)
	if err != nil {
		return nil, fmt.Errorf("failed to JSON-marshal input schema of tool %s: %w", tool.Name, err)
	}
	schema := new(jsonschema.Schema)
	if err = json.Unmarshal(b, schema); err != nil {
		return nil, fmt.Errorf("invalid input schema of tool %s: %w", tool.Name, err)
	}
	return schema, nil
}

// stringifyOutput converts a tool's output value into the text content
// sent back to the client: strings are passed through unchanged, nil
// becomes the empty string, and anything else is JSON-marshaled.
func stringifyOutput(toolName string, output any) (string, error) {
	switch v := output.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to JSON-marshal output of tool %s: %w", toolName, err)
		}
		return string(b), nil
	}
}
