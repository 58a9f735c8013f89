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

package identity

import (
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Names of the built-in providers.
const (
	GoogleCalendarProviderName = "google-cal-provider"
	GitHubProviderName         = "github-provider"
)

// A Provider describes one OAuth application registration: where to send
// the user for consent, where to exchange codes for tokens, and which
// scopes to request by default.
type Provider struct {
	// Name identifies the provider in vault keys, request credentials and
	// traces, e.g. "google-cal-provider".
	Name string

	// ClientID and ClientSecret are the OAuth application credentials.
	// ClientSecret may be empty for public clients relying on PKCE alone.
	ClientID     string
	ClientSecret string

	// AuthURL is the provider's authorization endpoint.
	AuthURL string

	// TokenURL is the provider's token endpoint.
	TokenURL string

	// Scopes are the default scopes requested when the caller does not
	// name any.
	Scopes []string

	// RedirectURL is the default redirect target. When empty, a loopback
	// callback server on an ephemeral port is used.
	RedirectURL string

	// AuthCodeOptions are extra parameters added to the authorization URL,
	// e.g. oauth2.AccessTypeOffline to obtain a refresh token from Google.
	AuthCodeOptions []oauth2.AuthCodeOption

	// ResolveIdentity determines the vault identity for a freshly granted
	// token. Optional; DefaultIdentity is used when nil or on failure.
	ResolveIdentity IdentityResolver
}

// Validate reports whether the provider carries enough configuration to
// run an authorization flow.
func (p Provider) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("provider name is required")
	case p.ClientID == "":
		return fmt.Errorf("provider %q: client ID is required", p.Name)
	case p.AuthURL == "":
		return fmt.Errorf("provider %q: auth URL is required", p.Name)
	case p.TokenURL == "":
		return fmt.Errorf("provider %q: token URL is required", p.Name)
	}
	return nil
}

// Config converts the provider to an oauth2 client configuration.
func (p Provider) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		RedirectURL: p.RedirectURL,
		Scopes:      p.Scopes,
	}
}

// GoogleCalendarProvider returns the built-in provider for read-only
// Google Calendar access. Consent is requested with access_type=offline
// so that Google issues a refresh token on first grant.
func GoogleCalendarProvider(clientID, clientSecret string) Provider {
	return Provider{
		Name:            GoogleCalendarProviderName,
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		AuthURL:         endpoints.Google.AuthURL,
		TokenURL:        endpoints.Google.TokenURL,
		Scopes:          []string{"https://www.googleapis.com/auth/calendar.readonly"},
		AuthCodeOptions: []oauth2.AuthCodeOption{oauth2.AccessTypeOffline},
		ResolveIdentity: GoogleIdentity,
	}
}

// GitHubProvider returns the built-in provider for GitHub repository and
// profile access.
func GitHubProvider(clientID, clientSecret string) Provider {
	return Provider{
		Name:            GitHubProviderName,
		ClientID:        clientID,
		ClientSecret:    clientSecret,
		AuthURL:         endpoints.GitHub.AuthURL,
		TokenURL:        endpoints.GitHub.TokenURL,
		Scopes:          []string{"repo", "read:user"},
		ResolveIdentity: GitHubIdentity,
	}
}
