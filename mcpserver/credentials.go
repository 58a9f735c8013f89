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

package mcpserver

import (
	"cmp"
	"context"
	"fmt"

	"github.com/nlpodyssey/agent-identity-go/identity"
	"github.com/nlpodyssey/agent-identity-go/vault"
)

// A CredentialSource resolves the access token presented to a provider's
// APIs during a tool call. An empty token with a nil error means no
// credential is available, in which case the tool reports that
// authorization is required.
type CredentialSource interface {
	AccessToken(ctx context.Context, provider string) (string, error)
}

// VaultCredentialSource reads cached tokens from a vault for a fixed
// identity. Expired tokens are treated as absent: refreshing them is the
// authorizer's business, not the tool host's.
type VaultCredentialSource struct {
	// Vault holds the tokens, keyed by (provider, identity).
	Vault vault.Vault

	// Identity keys the vault lookups. Defaults to identity.DefaultIdentity.
	Identity string
}

// NewVaultCredentialSource creates a CredentialSource reading tokens for
// identityKey from the given vault.
func NewVaultCredentialSource(v vault.Vault, identityKey string) *VaultCredentialSource {
	return &VaultCredentialSource{Vault: v, Identity: identityKey}
}

func (s *VaultCredentialSource) AccessToken(ctx context.Context, provider string) (string, error) {
	if s.Vault == nil {
		return "", nil
	}
	key := vault.Key{
		Provider: provider,
		Identity: cmp.Or(s.Identity, identity.DefaultIdentity),
	}
	token, err := s.Vault.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("vault lookup for provider %q: %w", provider, err)
	}
	if token == nil || token.AccessToken == "" || token.IsExpired() {
		return "", nil
	}
	return token.AccessToken, nil
}
