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

import "context"

// VaultKey identifies a stored token by the provider it was issued for
// and the identity it represents.
type VaultKey struct {
	// Provider is the Provider.Name the token belongs to.
	Provider string
	// Identity is the resolved subject, e.g. a Google account email or a
	// GitHub login. DefaultIdentity when unknown.
	Identity string
}

// A Vault stores tokens across requests so that a user who already
// granted consent is not sent through the browser flow again.
//
// Implementations live in the vault package. Get returns (nil, nil) when
// no token is stored under the key; expired tokens are returned as-is and
// expiry is the caller's concern.
type Vault interface {
	Get(ctx context.Context, key VaultKey) (*Token, error)
	Put(ctx context.Context, key VaultKey, token *Token) error
	Delete(ctx context.Context, key VaultKey) error
	Close(ctx context.Context) error
}
