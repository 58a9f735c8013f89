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
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/nlpodyssey/agent-identity-go/tracing"
)

// DefaultCallbackTimeout bounds how long AccessToken waits for the user
// to complete consent in the browser.
const DefaultCallbackTimeout = 5 * time.Minute

// An Authorizer obtains access tokens for providers, caching them in a
// vault so that consent is only requested when no usable token exists.
type Authorizer struct {
	// Vault caches tokens across requests, keyed by (provider, identity).
	// Optional; without a vault every call runs a fresh flow.
	Vault Vault

	// HTTPClient performs token exchanges and identity lookups.
	// Defaults to a retrying client.
	HTTPClient *http.Client

	// CallbackTimeout bounds the wait for the authorization redirect.
	// Defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	defaultClientOnce sync.Once
	defaultClient     *http.Client
}

// NewAuthorizer creates an Authorizer caching tokens in the given vault.
// The vault may be nil.
func NewAuthorizer(vault Vault) *Authorizer {
	return &Authorizer{Vault: vault}
}

type AccessTokenParams struct {
	// Provider to obtain a token from.
	Provider Provider

	// Scopes overrides the provider's default scopes when non-empty.
	Scopes []string

	// Flow selects the grant type. Defaults to AuthFlowUserFederation.
	Flow AuthFlow

	// OnAuthURL is invoked with the authorization URL when user consent is
	// required. Required for the USER_FEDERATION flow.
	OnAuthURL OnAuthURL

	// ForceAuthentication skips the vault lookup and always runs a flow.
	ForceAuthentication bool

	// CallbackURL overrides the redirect target. It must point at a
	// loopback address, since the redirect is served by this process.
	// When empty, an ephemeral port on localhost is used.
	CallbackURL string

	// Identity keys the vault entry. When empty, the provider's identity
	// resolver derives it from the granted token.
	Identity string
}

// AccessToken obtains a bearer access token for the provider named in
// params.
//
// Unless ForceAuthentication is set, a live token cached in the vault
// under (provider, identity) is returned without user interaction, and an
// expired one is silently refreshed when a refresh token is available.
//
// Otherwise a flow runs against the provider. For USER_FEDERATION this
// means: generate state and PKCE material, start the loopback callback
// server, deliver the authorization URL through OnAuthURL, wait for the
// redirect, exchange the code at the token endpoint, resolve the identity
// behind the token, and store it in the vault. For M2M the token is
// obtained directly through the client-credentials grant.
//
// Failures are reported as *AuthorizationError.
func (a *Authorizer) AccessToken(ctx context.Context, params AccessTokenParams) (accessToken string, err error) {
	if err = params.Provider.Validate(); err != nil {
		return "", NewAuthorizationError(params.Provider.Name, err)
	}

	flow := params.Flow
	if flow == "" {
		flow = AuthFlowUserFederation
	}
	switch flow {
	case AuthFlowUserFederation, AuthFlowM2M:
	default:
		return "", AuthorizationErrorf(params.Provider.Name, "unsupported auth flow %q", flow)
	}
	scopes := params.Scopes
	if len(scopes) == 0 {
		scopes = params.Provider.Scopes
	}

	err = tracing.AuthorizationSpan(
		ctx,
		tracing.AuthorizationSpanParams{
			Provider: params.Provider.Name,
			Scopes:   scopes,
			FlowType: string(flow),
		},
		func(ctx context.Context, span tracing.Span) error {
			spanData := span.SpanData().(*tracing.AuthorizationSpanData)

			if !params.ForceAuthentication {
				if token := a.cachedToken(ctx, params); token != nil {
					spanData.Status = "cached"
					accessToken = token.AccessToken
					return nil
				}
			}

			var token *Token
			var tokenErr error
			if flow == AuthFlowM2M {
				token, tokenErr = a.clientCredentials(ctx, params, scopes)
			} else {
				token, tokenErr = a.userFederation(ctx, params, scopes)
			}
			if tokenErr != nil {
				spanData.Status = "failed"
				span.SetError(tracing.SpanError{
					Message: "Authorization failed",
					Data: map[string]any{
						"provider": params.Provider.Name,
						"error":    tokenErr.Error(),
					},
				})
				return NewAuthorizationError(params.Provider.Name, tokenErr)
			}

			a.storeToken(ctx, params, token)
			spanData.Status = "completed"
			accessToken = token.AccessToken
			return nil
		},
	)
	return accessToken, err
}

// cachedToken returns a live token from the vault, refreshing an expired
// one when a refresh token is available. Vault failures are logged and
// treated as a miss.
func (a *Authorizer) cachedToken(ctx context.Context, params AccessTokenParams) *Token {
	if a.Vault == nil {
		return nil
	}
	key := VaultKey{
		Provider: params.Provider.Name,
		Identity: cmp.Or(params.Identity, DefaultIdentity),
	}

	token, err := a.Vault.Get(ctx, key)
	if err != nil {
		Logger().Warn("Vault lookup failed",
			slog.String("provider", key.Provider),
			slog.String("error", err.Error()))
		return nil
	}
	if token == nil || token.AccessToken == "" {
		return nil
	}
	if !token.IsExpired() {
		return token
	}
	if token.RefreshToken == "" {
		return nil
	}

	refreshed, err := a.refresh(ctx, params.Provider, token)
	if err != nil {
		Logger().Warn("Token refresh failed",
			slog.String("provider", key.Provider),
			slog.String("error", err.Error()))
		return nil
	}
	if err = a.Vault.Put(ctx, key, refreshed); err != nil {
		Logger().Warn("Vault store failed",
			slog.String("provider", key.Provider),
			slog.String("identity", key.Identity),
			slog.String("error", err.Error()))
	}
	return refreshed
}

// refresh redeems a refresh token for a new access token.
func (a *Authorizer) refresh(ctx context.Context, provider Provider, token *Token) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient())
	source := provider.Config().TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken})
	refreshed, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	out := tokenFromOAuth2(refreshed)
	if out.RefreshToken == "" {
		// Some providers omit the refresh token on refresh responses.
		out.RefreshToken = token.RefreshToken
	}
	return out, nil
}

// userFederation runs the three-legged authorization-code flow with PKCE.
func (a *Authorizer) userFederation(ctx context.Context, params AccessTokenParams, scopes []string) (*Token, error) {
	if params.OnAuthURL == nil {
		return nil, fmt.Errorf("OnAuthURL callback is required for the %s flow", AuthFlowUserFederation)
	}

	state := uuid.New().String()
	verifier := oauth2.GenerateVerifier()

	server, err := a.startCallbackServer(params, state)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := server.Stop(context.WithoutCancel(ctx)); e != nil {
			Logger().Warn("Failed to stop callback server", slog.String("error", e.Error()))
		}
	}()

	cfg := params.Provider.Config()
	cfg.RedirectURL = cmp.Or(params.CallbackURL, server.RedirectURL())
	cfg.Scopes = scopes

	opts := append(slices.Clone(params.Provider.AuthCodeOptions), oauth2.S256ChallengeOption(verifier))
	authURL := cfg.AuthCodeURL(state, opts...)

	params.OnAuthURL(ctx, authURL)
	Logger().Info("Waiting for authorization redirect",
		slog.String("provider", params.Provider.Name),
		slog.String("redirectURL", cfg.RedirectURL))

	waitCtx, cancel := context.WithTimeout(ctx, cmp.Or(a.CallbackTimeout, DefaultCallbackTimeout))
	defer cancel()

	code, err := server.WaitForCode(waitCtx)
	if err != nil {
		return nil, err
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, a.httpClient())
	token, err := cfg.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tokenFromOAuth2(token), nil
}

// startCallbackServer starts the loopback server that receives the
// redirect. A custom CallbackURL must point at a loopback host, since the
// authorization code only arrives through a redirect this process serves.
func (a *Authorizer) startCallbackServer(params AccessTokenParams, state string) (*CallbackServer, error) {
	serverParams := CallbackServerParams{State: state}

	if params.CallbackURL != "" {
		u, err := url.Parse(params.CallbackURL)
		if err != nil {
			return nil, fmt.Errorf("invalid callback URL %q: %w", params.CallbackURL, err)
		}
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
		default:
			return nil, fmt.Errorf("callback URL %q is not a loopback address", params.CallbackURL)
		}
		serverParams.Port = 80
		if p := u.Port(); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return nil, fmt.Errorf("invalid port in callback URL %q: %w", params.CallbackURL, err)
			}
			serverParams.Port = port
		}
		serverParams.Path = u.Path
	}

	server := NewCallbackServer(serverParams)
	if err := server.Start(); err != nil {
		return nil, err
	}
	return server, nil
}

// clientCredentials obtains a token representing the application itself.
func (a *Authorizer) clientCredentials(ctx context.Context, params AccessTokenParams, scopes []string) (*Token, error) {
	if params.Provider.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required for the %s flow", AuthFlowM2M)
	}

	cfg := &clientcredentials.Config{
		ClientID:     params.Provider.ClientID,
		ClientSecret: params.Provider.ClientSecret,
		TokenURL:     params.Provider.TokenURL,
		Scopes:       scopes,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient())
	token, err := cfg.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials grant: %w", err)
	}
	return tokenFromOAuth2(token), nil
}

// storeToken writes a granted token to the vault under the resolved
// identity. When no identity was requested, a copy is stored under
// DefaultIdentity too, so that later identity-less lookups still hit.
// A vault failure never invalidates a successfully granted token.
func (a *Authorizer) storeToken(ctx context.Context, params AccessTokenParams, token *Token) {
	if a.Vault == nil {
		return
	}

	identityKey := params.Identity
	if identityKey == "" && params.Provider.ResolveIdentity != nil {
		resolved, err := params.Provider.ResolveIdentity(ctx, a.httpClient(), token)
		if err != nil {
			Logger().Warn("Identity resolution failed",
				slog.String("provider", params.Provider.Name),
				slog.String("error", err.Error()))
		} else {
			identityKey = resolved
		}
	}

	keys := []VaultKey{{Provider: params.Provider.Name, Identity: cmp.Or(identityKey, DefaultIdentity)}}
	if params.Identity == "" && keys[0].Identity != DefaultIdentity {
		keys = append(keys, VaultKey{Provider: params.Provider.Name, Identity: DefaultIdentity})
	}
	for _, key := range keys {
		if err := a.Vault.Put(ctx, key, token); err != nil {
			Logger().Warn("Vault store failed",
				slog.String("provider", key.Provider),
				slog.String("identity", key.Identity),
				slog.String("error", err.Error()))
		}
	}
}

func (a *Authorizer) httpClient() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	a.defaultClientOnce.Do(func() {
		client := retryablehttp.NewClient()
		client.RetryMax = 3
		client.RetryWaitMin = 1 * time.Second
		client.RetryWaitMax = 30 * time.Second
		client.HTTPClient = &http.Client{Timeout: 30 * time.Second}
		client.Logger = nil
		a.defaultClient = client.StandardClient()
	})
	return a.defaultClient
}
