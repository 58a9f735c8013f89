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

// Package vault provides token storage backends for identity.Authorizer:
// an in-process map, a SQLite database, and a PostgreSQL database.
//
// All backends implement identity.Vault. Reads of an absent key return
// (nil, nil); expired tokens are stored and returned as-is, since expiry
// is the caller's concern.
package vault

import "github.com/nlpodyssey/agent-identity-go/identity"

// Vault is a type alias for the interface all backends implement.
type Vault = identity.Vault

// Key is a type alias for the (provider, identity) pair tokens are
// stored under.
type Key = identity.VaultKey
