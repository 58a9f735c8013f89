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

// Package identity provides OAuth 2.0 credential acquisition for agent
// tools that call external APIs on behalf of a user or a workload.
//
// The central entry point is Authorizer.AccessToken, which returns a
// bearer access token for a Provider, running a three-legged
// authorization-code flow (with PKCE) or a client-credentials flow as
// needed, and caching the result in a Vault keyed by provider and
// identity.
package identity

import "context"

// AuthFlow selects how an access token is obtained.
type AuthFlow string

const (
	// AuthFlowUserFederation is the three-legged authorization-code flow:
	// a user grants consent in a browser and the token represents that user.
	AuthFlowUserFederation AuthFlow = "USER_FEDERATION"

	// AuthFlowM2M is the client-credentials flow: the token represents the
	// application itself, with no user interaction.
	AuthFlowM2M AuthFlow = "M2M"
)

// DefaultIdentity is the vault identity used when a request does not name
// one and the provider cannot resolve one from the granted token.
const DefaultIdentity = "default"

// OnAuthURL is invoked with the authorization URL when a flow requires
// user interaction. Implementations typically print the URL, stream it to
// a client, or open a browser.
type OnAuthURL func(ctx context.Context, url string)
