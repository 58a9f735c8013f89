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
	"context"
	"sync"

	"github.com/nlpodyssey/agent-identity-go/identity"
)

// MemoryVault stores tokens in process memory. Contents are lost when
// the process ends. It is the default for single-process demos and tests.
type MemoryVault struct {
	mu     sync.Mutex
	tokens map[Key]identity.Token
}

// NewMemoryVault creates an empty in-memory vault.
func NewMemoryVault() *MemoryVault {
	return &MemoryVault{tokens: make(map[Key]identity.Token)}
}

func (v *MemoryVault) Get(_ context.Context, key Key) (*identity.Token, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	token, ok := v.tokens[key]
	if !ok {
		return nil, nil
	}
	return &token, nil
}

func (v *MemoryVault) Put(_ context.Context, key Key, token *identity.Token) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Stored by value, so later mutations of the caller's Token are not
	// reflected in the vault.
	v.tokens[key] = *token
	return nil
}

func (v *MemoryVault) Delete(_ context.Context, key Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.tokens, key)
	return nil
}

func (v *MemoryVault) Close(context.Context) error {
	return nil
}
