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

// Package github provides an agent tool that lists the repositories of
// the authenticated GitHub user.
//
// The tool reads its access token from the request credentials carried
// by the context. Without a token it returns an authorization-required
// marker instead of calling the API, and API failures are returned as
// tool output rather than errors, so the model always receives a
// response it can relay.
package github

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/identity"
)

// Name and description of the tool, as shown to the model.
const (
	ToolName        = "inspect_github_repos"
	ToolDescription = "Inspect and list the user's private GitHub repositories."
)

// AuthRequiredMessage accompanies the authorization-required marker.
const AuthRequiredMessage = "GitHub authentication is required. Please wait while we set up the authorization."

// Toolkit builds the GitHub repository inspection tool.
type Toolkit struct {
	provider string
	endpoint string
}

type ToolkitParams struct {
	// Provider names the request-credentials entry holding the access
	// token. Defaults to identity.GitHubProviderName.
	Provider string

	// Endpoint overrides the GitHub API base URL. Mainly for testing.
	Endpoint string
}

// New creates a new Toolkit.
func New(params ToolkitParams) *Toolkit {
	return &Toolkit{
		provider: cmp.Or(params.Provider, identity.GitHubProviderName),
		endpoint: params.Endpoint,
	}
}

// Provider returns the name of the identity provider whose credentials
// the tool consumes.
func (t *Toolkit) Provider() string { return t.provider }

// Tool returns the function tool listing the user's repositories.
func (t *Toolkit) Tool() agents.FunctionTool {
	return agents.FunctionTool{
		Name:        ToolName,
		Description: ToolDescription,
		ParamsJSONSchema: map[string]any{
			"title":                "inspect_github_repos_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(ctx context.Context, _ string) (any, error) {
			return t.inspectRepositories(ctx), nil
		},
	}
}

// authRequiredOutput asks the caller to run an authorization flow. The
// auth_required field makes the condition detectable without scanning
// the message text.
type authRequiredOutput struct {
	AuthRequired bool   `json:"auth_required"`
	Message      string `json:"message"`
	Events       []any  `json:"events"`
}

func (o authRequiredOutput) AuthorizationRequired() bool { return o.AuthRequired }

func (t *Toolkit) inspectRepositories(ctx context.Context) any {
	token := t.accessToken(ctx)
	if token == "" {
		return authRequiredOutput{
			AuthRequired: true,
			Message:      AuthRequiredMessage,
			Events:       []any{},
		}
	}

	client, err := t.newClient(ctx, token)
	if err != nil {
		return fmt.Sprintf("Error fetching GitHub repositories: %v", err)
	}

	user, _, err := client.Users.Get(ctx, "")
	if err != nil {
		return describeError(err)
	}
	login := user.GetLogin()

	result, _, err := client.Search.Repositories(ctx, "user:"+login, nil)
	if err != nil {
		return describeError(err)
	}
	return formatRepositories(login, result.Repositories)
}

func (t *Toolkit) accessToken(ctx context.Context) string {
	credentials, ok := identity.RequestCredentials(ctx)
	if !ok {
		return ""
	}
	return credentials.Token(t.provider)
}

func (t *Toolkit) newClient(ctx context.Context, token string) (*gh.Client, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client := gh.NewClient(httpClient)
	if t.endpoint != "" {
		// The go-github client requires a trailing slash.
		baseURL, err := url.Parse(strings.TrimSuffix(t.endpoint, "/") + "/")
		if err != nil {
			return nil, err
		}
		client.BaseURL = baseURL
	}
	return client, nil
}

func formatRepositories(login string, repositories []*gh.Repository) string {
	if len(repositories) == 0 {
		return fmt.Sprintf("No repositories found for %s.", login)
	}

	lines := []string{fmt.Sprintf("GitHub repositories for %s:\n", login)}
	for _, repository := range repositories {
		line := "📁 " + repository.GetName()
		if language := repository.GetLanguage(); language != "" {
			line += fmt.Sprintf(" (%s)", language)
		}
		line += fmt.Sprintf(" - ⭐ %d", repository.GetStargazersCount())
		lines = append(lines, line)

		if description := repository.GetDescription(); description != "" {
			lines = append(lines, "   "+description)
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func describeError(err error) string {
	var apiErr *gh.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.Response != nil {
		return fmt.Sprintf("GitHub API error: %d - %s", apiErr.Response.StatusCode, apiErr.Message)
	}
	return fmt.Sprintf("Error fetching GitHub repositories: %v", err)
}
