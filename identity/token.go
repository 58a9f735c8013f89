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
	"time"

	"golang.org/x/oauth2"
)

// expiryMargin is subtracted from a token's lifetime when checking
// expiry, so that a token about to lapse is not handed to a tool call
// that would then fail mid-flight.
const expiryMargin = 30 * time.Second

// Token holds OAuth credentials for one (provider, identity) pair.
type Token struct {
	// AccessToken is the bearer token presented to the provider's APIs.
	AccessToken string `json:"access_token"`

	// RefreshToken, when present, can be redeemed for a new access token
	// without user interaction.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Expiry is when the access token expires.
	// A zero Expiry means the token does not expire.
	Expiry time.Time `json:"expiry,omitempty"`

	// IDToken is the OIDC ID token, when the provider issued one.
	IDToken string `json:"id_token,omitempty"`
}

// IsExpired reports whether the access token has expired or is about to.
func (t *Token) IsExpired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(expiryMargin).After(t.Expiry)
}

// tokenFromOAuth2 converts a token returned by the oauth2 library,
// capturing the OIDC ID token from the extra fields when present.
func tokenFromOAuth2(t *oauth2.Token) *Token {
	token := &Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.Type(),
		Expiry:       t.Expiry,
	}
	if idToken, ok := t.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}
	return token
}
