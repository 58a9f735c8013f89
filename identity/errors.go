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

import "fmt"

// AuthorizationError reports a failed credential acquisition: a rejected
// consent, a state mismatch, a failed code exchange, or a callback that
// never arrived. It wraps the underlying cause.
type AuthorizationError struct {
	// Provider is the name of the provider the authorization was for.
	Provider string
	// Err is the underlying cause.
	Err error
}

func (e *AuthorizationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("authorization failed: %v", e.Err)
	}
	return fmt.Sprintf("authorization failed for provider %q: %v", e.Provider, e.Err)
}

func (e *AuthorizationError) Unwrap() error {
	return e.Err
}

// NewAuthorizationError creates an AuthorizationError wrapping err.
func NewAuthorizationError(provider string, err error) *AuthorizationError {
	return &AuthorizationError{Provider: provider, Err: err}
}

// AuthorizationErrorf creates an AuthorizationError from a format string.
func AuthorizationErrorf(provider, format string, a ...any) *AuthorizationError {
	return &AuthorizationError{Provider: provider, Err: fmt.Errorf(format, a...)}
}
