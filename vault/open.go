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
	"fmt"
)

// Names of the available backends, as accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Open creates the backend selected by name. The DSN is the SQLite data
// source name or the PostgreSQL connection string; the memory backend
// ignores it. An empty backend name selects the memory backend.
func Open(ctx context.Context, backend, dsn string) (Vault, error) {
	switch backend {
	case BackendMemory, "":
		return NewMemoryVault(), nil
	case BackendSQLite:
		return NewSQLiteVault(ctx, SQLiteVaultParams{DBDataSourceName: dsn})
	case BackendPostgres:
		return NewPgVault(ctx, PgVaultParams{ConnectionString: dsn})
	default:
		return nil, fmt.Errorf("unknown vault backend %q", backend)
	}
}
