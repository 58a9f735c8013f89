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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v80/github"
)

// An IdentityResolver maps a freshly granted token to the identity it
// represents, e.g. an account email or a login name. The client is the
// HTTP client to use for any provider API calls.
type IdentityResolver func(ctx context.Context, client *http.Client, token *Token) (string, error)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleIdentity resolves the Google account behind a token. It prefers
// the claims of the OIDC ID token, which requires no network round trip,
// and falls back to the userinfo endpoint when no ID token was issued.
func GoogleIdentity(ctx context.Context, client *http.Client, token *Token) (string, error) {
	if token.IDToken != "" {
		claims := jwt.MapClaims{}
		if _, _, err := new(jwt.Parser).ParseUnverified(token.IDToken, &claims); err == nil {
			if email, ok := claims["email"].(string); ok && email != "" {
				return email, nil
			}
			if sub, ok := claims["sub"].(string); ok && sub != "" {
				return sub, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserInfoURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo request failed with status %d", resp.StatusCode)
	}

	var userInfo struct {
		Email string `json:"email"`
		ID    string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return "", fmt.Errorf("decode userinfo: %w", err)
	}

	if userInfo.Email != "" {
		return userInfo.Email, nil
	}
	if userInfo.ID != "" {
		return userInfo.ID, nil
	}
	return "", fmt.Errorf("userinfo response carries neither email nor id")
}

// GitHubIdentity resolves the login of the user behind a token via the
// authenticated /user endpoint.
func GitHubIdentity(ctx context.Context, client *http.Client, token *Token) (string, error) {
	gh := github.NewClient(client).WithAuthToken(token.AccessToken)
	user, _, err := gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("fetch authenticated user: %w", err)
	}
	if login := user.GetLogin(); login != "" {
		return login, nil
	}
	return "", fmt.Errorf("user response carries no login")
}
