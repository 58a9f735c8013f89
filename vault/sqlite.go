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
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nlpodyssey/agent-identity-go/identity"
)

// SQLiteVault is a SQLite-based token store.
//
// By default, it uses an in-memory database that is lost when the process
// ends. For persistent storage, provide a file path.
type SQLiteVault struct {
	dbDSN string
	table string
	db    *sql.DB
	mu    sync.Mutex
}

type SQLiteVaultParams struct {
	// Optional database data source name.
	// Defaults to "file::memory:?cache=shared" (in-memory database).
	DBDataSourceName string

	// Optional name of the table to store tokens.
	// Defaults to "agent_tokens".
	Table string
}

// NewSQLiteVault initializes the SQLite token store.
func NewSQLiteVault(ctx context.Context, params SQLiteVaultParams) (_ *SQLiteVault, err error) {
	v := &SQLiteVault{
		dbDSN: cmp.Or(params.DBDataSourceName, "file::memory:?cache=shared"),
		table: cmp.Or(params.Table, "agent_tokens"),
	}

	defer func() {
		if err != nil && v.db != nil {
			if e := v.db.Close(); e != nil {
				err = errors.Join(err, e)
			}
		}
	}()

	v.db, err = sql.Open("sqlite3", v.dbDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite3 database: %w", err)
	}

	_, err = v.db.ExecContext(ctx, `PRAGMA journal_mode=WAL`)
	if err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	err = v.initDB(ctx)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (v *SQLiteVault) Get(ctx context.Context, key Key) (*identity.Token, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var tokenData string
	err := v.db.QueryRowContext(
		ctx,
		fmt.Sprintf(`SELECT token_data FROM "%s" WHERE provider = ? AND identity = ?`, v.table),
		key.Provider, key.Identity,
	).Scan(&tokenData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying token: %w", err)
	}

	var token identity.Token
	if err = json.Unmarshal([]byte(tokenData), &token); err != nil {
		return nil, fmt.Errorf("error unmarshaling stored token: %w", err)
	}
	return &token, nil
}

func (v *SQLiteVault) Put(ctx context.Context, key Key, token *identity.Token) error {
	tokenData, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("error JSON marshaling token: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	_, err = v.db.ExecContext(
		ctx,
		fmt.Sprintf(`
			INSERT INTO "%s" (provider, identity, token_data) VALUES (?, ?, ?)
			ON CONFLICT (provider, identity) DO UPDATE
			SET token_data = excluded.token_data, updated_at = CURRENT_TIMESTAMP
		`, v.table),
		key.Provider, key.Identity, string(tokenData),
	)
	if err != nil {
		return fmt.Errorf("error storing token: %w", err)
	}
	return nil
}

func (v *SQLiteVault) Delete(ctx context.Context, key Key) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := v.db.ExecContext(
		ctx,
		fmt.Sprintf(`DELETE FROM "%s" WHERE provider = ? AND identity = ?`, v.table),
		key.Provider, key.Identity,
	)
	if err != nil {
		return fmt.Errorf("error deleting token: %w", err)
	}
	return nil
}

// Initialize the database schema.
func (v *SQLiteVault) initDB(ctx context.Context) error {
	_, err := v.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s" (
			provider TEXT NOT NULL,
			identity TEXT NOT NULL,
			token_data TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (provider, identity)
		)
	`, v.table))
	if err != nil {
		return fmt.Errorf("error creating tokens table: %w", err)
	}
	return nil
}

// Close the database connection.
func (v *SQLiteVault) Close(context.Context) error {
	return v.db.Close()
}
