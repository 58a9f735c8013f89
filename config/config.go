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

// Package config loads service settings from a JSON document, layering
// built-in defaults, file values and AGENTID_* environment overrides, in
// that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	koanfjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/nlpodyssey/agent-identity-go/identity"
	"github.com/nlpodyssey/agent-identity-go/telemetry"
	"github.com/nlpodyssey/agent-identity-go/vault"
)

// Environment variables taking precedence over file values. The
// telemetry section additionally honors the variables declared in the
// telemetry package.
const (
	EnvRuntimeAddr     = "AGENTID_RUNTIME_ADDR"
	EnvModelName       = "AGENTID_MODEL_NAME"
	EnvVaultBackend    = "AGENTID_VAULT_BACKEND"
	EnvVaultDSN        = "AGENTID_VAULT_DSN"
	EnvAuthMaxAttempts = "AGENTID_AUTH_MAX_ATTEMPTS"
)

// Settings is the root configuration document.
type Settings struct {
	Runtime   RuntimeSettings             `json:"runtime"`
	Model     ModelSettings               `json:"model"`
	Providers map[string]ProviderSettings `json:"providers"`
	Vault     VaultSettings               `json:"vault"`
	Telemetry TelemetrySettings           `json:"telemetry"`
	Auth      AuthSettings                `json:"auth"`
}

type RuntimeSettings struct {
	// Addr is the address the service listens on.
	Addr string `json:"addr"`
}

type ModelSettings struct {
	// Name of the model serving the agents.
	Name string `json:"name"`

	// APIKeyEnv names the environment variable holding the model API
	// key, so the key itself never appears in the file.
	APIKeyEnv string `json:"api_key_env"`
}

// APIKey reads the model API key from the environment variable named by
// APIKeyEnv.
func (m ModelSettings) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}

// ProviderSettings is the file-configurable part of an OAuth provider.
// Endpoints may be left empty for the built-in providers, whose defaults
// the identity package supplies.
type ProviderSettings struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	RedirectURL  string   `json:"redirect_url"`
}

type VaultSettings struct {
	// Backend selects the token store: one of the vault.Backend* names.
	Backend string `json:"backend"`

	// DSN is the SQLite data source name or the PostgreSQL connection
	// string. Ignored by the memory backend.
	DSN string `json:"dsn"`
}

type TelemetrySettings struct {
	ConsoleExport bool     `json:"console_export"`
	OTLPEndpoint  string   `json:"otlp_endpoint"`
	ExcludedURLs  []string `json:"excluded_urls"`
}

type AuthSettings struct {
	// MaxAttempts caps how many authorization rounds one request may
	// trigger.
	MaxAttempts int `json:"max_attempts"`

	// CallbackTimeout bounds the wait for the user to complete consent.
	CallbackTimeout time.Duration `json:"callback_timeout"`
}

// Default returns the built-in settings: the service address and the two
// built-in providers, a memory vault, and a single authorization attempt
// per request.
func Default() Settings {
	return Settings{
		Runtime: RuntimeSettings{Addr: ":8080"},
		Model: ModelSettings{
			Name:      "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Providers: map[string]ProviderSettings{
			identity.GoogleCalendarProviderName: {
				Scopes: identity.GoogleCalendarProvider("", "").Scopes,
			},
			identity.GitHubProviderName: {
				Scopes: identity.GitHubProvider("", "").Scopes,
			},
		},
		Vault: VaultSettings{Backend: vault.BackendMemory},
		Auth: AuthSettings{
			MaxAttempts:     1,
			CallbackTimeout: identity.DefaultCallbackTimeout,
		},
	}
}

// Load reads and parses the settings file at path.
func Load(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading settings file: %w", err)
	}
	return LoadBytes(b)
}

// LoadBytes parses b as a JSON settings document layered over Default,
// then applies environment overrides.
func LoadBytes(b []byte) (*Settings, error) {
	k := koanf.New(".")
	parser := koanfjson.Parser()

	defaults, err := json.Marshal(Default())
	if err != nil {
		return nil, fmt.Errorf("error encoding default settings: %w", err)
	}
	if err = k.Load(rawbytes.Provider(defaults), parser); err != nil {
		return nil, fmt.Errorf("error loading default settings: %w", err)
	}

	if len(b) > 0 {
		if err = k.Load(rawbytes.Provider(b), parser); err != nil {
			return nil, fmt.Errorf("error parsing settings: %w", err)
		}
	}

	if err = applyEnvOverrides(k); err != nil {
		return nil, err
	}

	settings := new(Settings)
	if err = k.UnmarshalWithConf("", settings, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("error decoding settings: %w", err)
	}
	if err = settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate reports configuration mistakes that would only surface later
// as confusing runtime failures.
func (s *Settings) Validate() error {
	switch s.Vault.Backend {
	case vault.BackendMemory, vault.BackendSQLite, "":
	case vault.BackendPostgres:
		if s.Vault.DSN == "" {
			return fmt.Errorf("vault backend %q requires a dsn", s.Vault.Backend)
		}
	default:
		return fmt.Errorf("unknown vault backend %q", s.Vault.Backend)
	}
	if s.Auth.MaxAttempts < 0 {
		return fmt.Errorf("auth max_attempts must not be negative")
	}
	if s.Auth.CallbackTimeout < 0 {
		return fmt.Errorf("auth callback_timeout must not be negative")
	}
	return nil
}

// IdentityProvider builds the identity.Provider for the named entry.
// For the built-in provider names, file values overlay the built-in
// defaults, so identity resolvers and consent options survive
// configuration.
func (s *Settings) IdentityProvider(name string) (identity.Provider, error) {
	ps, ok := s.Providers[name]
	if !ok {
		return identity.Provider{}, fmt.Errorf("provider %q is not configured", name)
	}

	var provider identity.Provider
	switch name {
	case identity.GoogleCalendarProviderName:
		provider = identity.GoogleCalendarProvider(ps.ClientID, ps.ClientSecret)
	case identity.GitHubProviderName:
		provider = identity.GitHubProvider(ps.ClientID, ps.ClientSecret)
	default:
		provider = identity.Provider{
			Name:         name,
			ClientID:     ps.ClientID,
			ClientSecret: ps.ClientSecret,
		}
	}

	if ps.AuthURL != "" {
		provider.AuthURL = ps.AuthURL
	}
	if ps.TokenURL != "" {
		provider.TokenURL = ps.TokenURL
	}
	if ps.RedirectURL != "" {
		provider.RedirectURL = ps.RedirectURL
	}
	if len(ps.Scopes) > 0 {
		provider.Scopes = slices.Clone(ps.Scopes)
	}
	return provider, nil
}

func applyEnvOverrides(k *koanf.Koanf) error {
	for env, key := range map[string]string{
		EnvRuntimeAddr:            "runtime.addr",
		EnvModelName:              "model.name",
		EnvVaultBackend:           "vault.backend",
		EnvVaultDSN:               "vault.dsn",
		EnvAuthMaxAttempts:        "auth.max_attempts",
		telemetry.EnvOTLPEndpoint: "telemetry.otlp_endpoint",
	} {
		v, ok := os.LookupEnv(env)
		if !ok || v == "" {
			continue
		}
		if err := k.Set(key, v); err != nil {
			return fmt.Errorf("error overriding %s from %s: %w", key, env, err)
		}
	}

	if v, ok := os.LookupEnv(telemetry.EnvEnableConsoleExport); ok && v != "" {
		enabled := v == "1" || strings.ToLower(v) == "true"
		if err := k.Set("telemetry.console_export", enabled); err != nil {
			return fmt.Errorf("error overriding telemetry.console_export: %w", err)
		}
	}

	if v, ok := os.LookupEnv(telemetry.EnvExcludedURLs); ok && v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		if err := k.Set("telemetry.excluded_urls", paths); err != nil {
			return fmt.Errorf("error overriding telemetry.excluded_urls: %w", err)
		}
	}
	return nil
}
