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
	"context"
	"sync"
)

// Credentials carries the access tokens obtained during one request
// lifecycle, keyed by provider name. Tools read tokens from the request
// context instead of from process-wide state, so concurrent requests for
// different users never see each other's tokens.
//
// Credentials is safe for concurrent use.
type Credentials struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewCredentials creates an empty Credentials.
func NewCredentials() *Credentials {
	return &Credentials{tokens: make(map[string]string)}
}

// Set records the access token for a provider, replacing any previous one.
func (c *Credentials) Set(provider, accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[provider] = accessToken
}

// Token returns the access token recorded for a provider, or "" if none.
func (c *Credentials) Token(provider string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens[provider]
}

type credentialsContextKey struct{}

// WithRequestCredentials returns a copy of ctx carrying the given
// Credentials for the duration of a request.
func WithRequestCredentials(ctx context.Context, c *Credentials) context.Context {
	return context.WithValue(ctx, credentialsContextKey{}, c)
}

// RequestCredentials returns the Credentials carried by ctx, if any.
func RequestCredentials(ctx context.Context) (*Credentials, bool) {
	c, ok := ctx.Value(credentialsContextKey{}).(*Credentials)
	return c, ok && c != nil
}
