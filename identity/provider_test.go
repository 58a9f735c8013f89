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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderValidate(t *testing.T) {
	valid := Provider{
		Name:     "test-provider",
		ClientID: "client-id",
		AuthURL:  "https://provider.example/authorize",
		TokenURL: "https://provider.example/token",
	}
	assert.NoError(t, valid.Validate())

	t.Run("missing name", func(t *testing.T) {
		p := valid
		p.Name = ""
		assert.ErrorContains(t, p.Validate(), "provider name is required")
	})

	t.Run("missing client ID", func(t *testing.T) {
		p := valid
		p.ClientID = ""
		assert.ErrorContains(t, p.Validate(), "client ID is required")
	})

	t.Run("missing auth URL", func(t *testing.T) {
		p := valid
		p.AuthURL = ""
		assert.ErrorContains(t, p.Validate(), "auth URL is required")
	})

	t.Run("missing token URL", func(t *testing.T) {
		p := valid
		p.TokenURL = ""
		assert.ErrorContains(t, p.Validate(), "token URL is required")
	})

	t.Run("client secret is optional", func(t *testing.T) {
		p := valid
		p.ClientSecret = ""
		assert.NoError(t, p.Validate())
	})
}

func TestProviderConfig(t *testing.T) {
	p := Provider{
		Name:         "test-provider",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      "https://provider.example/authorize",
		TokenURL:     "https://provider.example/token",
		Scopes:       []string{"scope-a", "scope-b"},
		RedirectURL:  "http://localhost:9999/callback",
	}

	cfg := p.Config()
	assert.Equal(t, "client-id", cfg.ClientID)
	assert.Equal(t, "client-secret", cfg.ClientSecret)
	assert.Equal(t, "https://provider.example/authorize", cfg.Endpoint.AuthURL)
	assert.Equal(t, "https://provider.example/token", cfg.Endpoint.TokenURL)
	assert.Equal(t, []string{"scope-a", "scope-b"}, cfg.Scopes)
	assert.Equal(t, "http://localhost:9999/callback", cfg.RedirectURL)
}

func TestGoogleCalendarProvider(t *testing.T) {
	p := GoogleCalendarProvider("client-id", "client-secret")
	assert.Equal(t, GoogleCalendarProviderName, p.Name)
	assert.Equal(t, "client-id", p.ClientID)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/calendar.readonly"}, p.Scopes)
	assert.NotEmpty(t, p.AuthURL)
	assert.NotEmpty(t, p.TokenURL)
	assert.Len(t, p.AuthCodeOptions, 1)
	assert.NotNil(t, p.ResolveIdentity)
	assert.NoError(t, p.Validate())
}

func TestGitHubProvider(t *testing.T) {
	p := GitHubProvider("client-id", "client-secret")
	assert.Equal(t, GitHubProviderName, p.Name)
	assert.Equal(t, []string{"repo", "read:user"}, p.Scopes)
	assert.NotEmpty(t, p.AuthURL)
	assert.NotEmpty(t, p.TokenURL)
	assert.Empty(t, p.AuthCodeOptions)
	assert.NotNil(t, p.ResolveIdentity)
	assert.NoError(t, p.Validate())
}
