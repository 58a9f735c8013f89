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

package vault

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/agent-identity-go/identity"
)

func TestMemoryVault(t *testing.T) {
	ctx := t.Context()
	key := Key{Provider: "google-cal-provider", Identity: "user@example.com"}

	t.Run("absent key returns nil, nil", func(t *testing.T) {
		v := NewMemoryVault()
		token, err := v.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("round trip", func(t *testing.T) {
		v := NewMemoryVault()
		stored := &identity.Token{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		}
		require.NoError(t, v.Put(ctx, key, stored))

		token, err := v.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, stored, token)
	})

	t.Run("keys are independent", func(t *testing.T) {
		v := NewMemoryVault()
		require.NoError(t, v.Put(ctx, key, &identity.Token{AccessToken: "token-a"}))

		other := Key{Provider: "google-cal-provider", Identity: "other@example.com"}
		token, err := v.Get(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, token)
	})

	t.Run("put overwrites", func(t *testing.T) {
		v := NewMemoryVault()
		require.NoError(t, v.Put(ctx, key, &identity.Token{AccessToken: "token-1"}))
		require.NoError(t, v.Put(ctx, key, &identity.Token{AccessToken: "token-2"}))

		token, err := v.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "token-2", token.AccessToken)
	})

	t.Run("stored tokens are isolated from caller mutations", func(t *testing.T) {
		v := NewMemoryVault()
		original := &identity.Token{AccessToken: "token-1"}
		require.NoError(t, v.Put(ctx, key, original))

		original.AccessToken = "mutated"

		token, err := v.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "token-1", token.AccessToken)
	})

	t.Run("delete", func(t *testing.T) {
		v := NewMemoryVault()
		require.NoError(t, v.Put(ctx, key, &identity.Token{AccessToken: "token-1"}))
		require.NoError(t, v.Delete(ctx, key))

		token, err := v.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, token)

		// Deleting an absent key is not an error.
		require.NoError(t, v.Delete(ctx, key))
	})

	t.Run("close", func(t *testing.T) {
		v := NewMemoryVault()
		assert.NoError(t, v.Close(ctx))
	})
}
