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

package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/identity"
)

func TestToolDefinition(t *testing.T) {
	tool := New(ToolkitParams{}).Tool()
	assert.Equal(t, "inspect_github_repos", tool.Name)
	assert.Equal(t, "Inspect and list the user's private GitHub repositories.", tool.Description)
	assert.Equal(t, "object", tool.ParamsJSONSchema["type"])
}

func TestInspectWithoutToken(t *testing.T) {
	tool := New(ToolkitParams{}).Tool()

	output, err := tool.OnInvokeTool(context.Background(), "{}")
	require.NoError(t, err)

	reporter, ok := output.(agents.AuthorizationReporter)
	require.True(t, ok)
	assert.True(t, reporter.AuthorizationRequired())

	serialized, err := json.Marshal(output)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"auth_required": true,
		"message": "GitHub authentication is required. Please wait while we set up the authorization.",
		"events": []
	}`, string(serialized))
}

func newTestContext(token string) context.Context {
	credentials := identity.NewCredentials()
	credentials.Set(identity.GitHubProviderName, token)
	return identity.WithRequestCredentials(context.Background(), credentials)
}

func TestInspectRepositories(t *testing.T) {
	var gotAuth, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"login": "octocat"}`))
		case "/search/repositories":
			gotQuery = r.URL.Query().Get("q")
			_, _ = w.Write([]byte(`{"total_count": 2, "items": [
				{"name": "hello-world", "language": "Go", "stargazers_count": 42, "description": "My first repository"},
				{"name": "scratchpad", "stargazers_count": 0}
			]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	toolkit := New(ToolkitParams{Endpoint: server.URL})
	output, err := toolkit.Tool().OnInvokeTool(newTestContext("gh-token"), "{}")
	require.NoError(t, err)

	assert.Equal(t, "Bearer gh-token", gotAuth)
	assert.Equal(t, "user:octocat", gotQuery)

	want := "GitHub repositories for octocat:\n" +
		"\n" +
		"📁 hello-world (Go) - ⭐ 42\n" +
		"   My first repository\n" +
		"\n" +
		"📁 scratchpad - ⭐ 0\n"
	assert.Equal(t, want, output)
}

func TestInspectNoRepositories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user":
			_, _ = w.Write([]byte(`{"login": "octocat"}`))
		case "/search/repositories":
			_, _ = w.Write([]byte(`{"total_count": 0, "items": []}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	toolkit := New(ToolkitParams{Endpoint: server.URL})
	output, err := toolkit.Tool().OnInvokeTool(newTestContext("gh-token"), "{}")
	require.NoError(t, err)

	assert.Equal(t, "No repositories found for octocat.", output)
}

func TestInspectAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	t.Cleanup(server.Close)

	toolkit := New(ToolkitParams{Endpoint: server.URL})
	output, err := toolkit.Tool().OnInvokeTool(newTestContext("expired-token"), "{}")
	require.NoError(t, err, "API failures are tool output, not errors")

	assert.Equal(t, "GitHub API error: 401 - Bad credentials", output)
}

func TestInspectNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	toolkit := New(ToolkitParams{Endpoint: endpoint})
	output, err := toolkit.Tool().OnInvokeTool(newTestContext("gh-token"), "{}")
	require.NoError(t, err)

	text, ok := output.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(text, "Error fetching GitHub repositories: "), text)
}
