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

// Package authflow drives agent requests through the authorization
// retry protocol: run the agent, detect an authorization demand in the
// outcome, acquire an access token while surfacing the consent URL on
// the response stream, then run the agent again with credentials in
// place. Failures are reported as stream items, never as raised errors,
// so a streaming client always receives a well-formed response.
package authflow

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/identity"
	"github.com/nlpodyssey/agent-identity-go/runtime"
	"github.com/nlpodyssey/agent-identity-go/streamqueue"
)

// Authorizer acquires an access token for a provider.
// *identity.Authorizer satisfies this interface.
type Authorizer interface {
	AccessToken(ctx context.Context, params identity.AccessTokenParams) (string, error)
}

// Flow executes one agent request with authorization handling.
type Flow struct {
	// Agent is the agent to run. Required.
	Agent *agents.Agent

	// Runner executes the agent. The zero value is usable.
	Runner agents.Runner

	// Authorizer acquires access tokens. Required.
	Authorizer Authorizer

	// Detector decides whether a response text demands authorization.
	// Structured tool outcomes are honored regardless; the detector
	// covers tools that report the demand as free text only.
	// Defaults to a KeywordDetector with DefaultAuthKeywords.
	Detector Detector

	// Provider is the OAuth provider to authorize against.
	Provider identity.Provider

	// DisplayName is the human-readable provider name used in stream
	// messages. Defaults to Provider.Name.
	DisplayName string

	// Scopes overrides the provider's default scopes.
	Scopes []string

	// AuthFlow selects the grant type. Defaults to USER_FEDERATION.
	AuthFlow identity.AuthFlow

	// ForceAuthentication skips stored tokens and always runs a fresh
	// authorization.
	ForceAuthentication bool

	// CallbackURL overrides the redirect target of the authorization
	// flow.
	CallbackURL string

	// MaxAuthAttempts caps the authorize-and-retry cycles of a single
	// request. Defaults to 1.
	MaxAuthAttempts int

	// OnAuthURL overrides the default handling of the consent URL,
	// which emits it on the stream as "Authorization url: <url>".
	OnAuthURL identity.OnAuthURL
}

// Execute runs the agent for userMessage, emitting progress, the
// response, and any failure on the queue. When the agent's outcome
// demands authorization, the access token is acquired and the agent is
// run again with request credentials populated.
//
// The queue is always finished before Execute returns. An error is
// returned only for an invalid configuration, in which case the queue
// is left untouched.
func (f *Flow) Execute(ctx context.Context, queue *streamqueue.Queue[runtime.StreamItem], userMessage string) error {
	switch {
	case queue == nil:
		return fmt.Errorf("authflow: stream queue is required")
	case f.Agent == nil:
		return fmt.Errorf("authflow: agent is required")
	case f.Authorizer == nil:
		return fmt.Errorf("authflow: authorizer is required")
	}

	creds, ok := identity.RequestCredentials(ctx)
	if !ok {
		creds = identity.NewCredentials()
		ctx = identity.WithRequestCredentials(ctx, creds)
	}

	defer queue.Finish()
	queue.Put(runtime.StatusItem("Begin agent execution"))

	result, err := f.Runner.Run(ctx, f.Agent, userMessage)
	if err != nil {
		queue.Put(runtime.ErrorItem(fmt.Sprintf("Error: %v", err)))
		return nil
	}

	maxAttempts := cmp.Or(f.MaxAuthAttempts, 1)
	attempts := 0
	for f.needsAuthorization(result) {
		if attempts >= maxAttempts {
			queue.Put(runtime.ErrorItem(fmt.Sprintf("Error: max auth attempts (%d) exceeded", maxAttempts)))
			return nil
		}
		attempts++

		name := f.displayName()
		queue.Put(runtime.StatusItem(fmt.Sprintf("Authentication required for %s access. Starting authorization flow...", name)))
		Logger().DebugContext(ctx, "Starting authorization flow",
			slog.String("provider", f.Provider.Name),
			slog.Int("attempt", attempts),
		)

		token, err := f.authorize(ctx, queue)
		if err != nil {
			Logger().WarnContext(ctx, "Authorization failed",
				slog.String("provider", f.Provider.Name),
				slog.Any("error", err),
			)
			queue.Put(runtime.ErrorItem(fmt.Sprintf("Authentication failed: %v", err)))
			return nil
		}
		creds.Set(f.Provider.Name, token)

		queue.Put(runtime.StatusItem(fmt.Sprintf("Authentication successful! Retrying %s request...", name)))

		result, err = f.Runner.Run(ctx, f.Agent, userMessage)
		if err != nil {
			queue.Put(runtime.ErrorItem(fmt.Sprintf("Error: %v", err)))
			return nil
		}
	}

	queue.Put(runtime.MessageItem(result.FinalOutput()))
	queue.Put(runtime.StatusItem("End agent execution"))
	return nil
}

func (f *Flow) authorize(ctx context.Context, queue *streamqueue.Queue[runtime.StreamItem]) (string, error) {
	onAuthURL := f.OnAuthURL
	if onAuthURL == nil {
		onAuthURL = func(ctx context.Context, url string) {
			queue.Put(runtime.StatusItem("Authorization url: " + url))
		}
	}
	return f.Authorizer.AccessToken(ctx, identity.AccessTokenParams{
		Provider:            f.Provider,
		Scopes:              f.Scopes,
		Flow:                f.AuthFlow,
		OnAuthURL:           onAuthURL,
		ForceAuthentication: f.ForceAuthentication,
		CallbackURL:         f.CallbackURL,
	})
}

func (f *Flow) needsAuthorization(result *agents.RunResult) bool {
	if result.AuthorizationRequired() {
		return true
	}
	detector := f.Detector
	if detector == nil {
		detector = KeywordDetector{}
	}
	return detector.Detect(result.FinalOutput())
}

func (f *Flow) displayName() string {
	return cmp.Or(f.DisplayName, f.Provider.Name)
}
