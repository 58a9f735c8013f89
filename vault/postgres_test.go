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
	"encoding/json"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nlpodyssey/agent-identity-go/identity"
)

// MockPgConn is a mock implementation of PgConnInterface for testing
type MockPgConn struct {
	mock.Mock
}

func (m *MockPgConn) QueryRow(ctx context.Context, sql string, args ...any) PgRowInterface {
	arguments := []any{ctx, sql}
	arguments = append(arguments, args...)
	ret := m.Called(arguments...)
	return ret.Get(0).(PgRowInterface)
}

func (m *MockPgConn) Exec(ctx context.Context, sql string, args ...any) (any, error) {
	arguments := []any{ctx, sql}
	arguments = append(arguments, args...)
	ret := m.Called(arguments...)
	return ret.Get(0), ret.Error(1)
}

func (m *MockPgConn) Close(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}

// MockPgRow is a mock implementation of PgRowInterface for testing
type MockPgRow struct {
	data  string
	empty bool
}

func (m *MockPgRow) Scan(dest ...any) error {
	if m.empty {
		return pgx.ErrNoRows
	}
	if len(dest) > 0 {
		if strPtr, ok := dest[0].(*string); ok {
			*strPtr = m.data
		}
	}
	return nil
}

// Helper function to create a test vault with mock connection
func createMockPgVault(t *testing.T, mockConn *MockPgConn) *PgVault {
	t.Helper()
	// Mock the initDB call
	mockConn.On("Exec", mock.Anything, mock.AnythingOfType("string")).Return(nil, nil).Once()

	vault, err := NewPgVault(context.Background(), PgVaultParams{
		Table: "test_tokens",
		Conn:  mockConn,
	})
	require.NoError(t, err)
	return vault
}

func TestPgVault_NewPgVault(t *testing.T) {
	ctx := context.Background()

	t.Run("missing connection string and no conn provided", func(t *testing.T) {
		_, err := NewPgVault(ctx, PgVaultParams{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "connection string is required")
	})

	t.Run("successful creation with mock connection", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		assert.Equal(t, "test_tokens", vault.table)
		mockConn.AssertExpectations(t)
	})

	t.Run("initDB error closes the connection", func(t *testing.T) {
		mockConn := &MockPgConn{}
		mockConn.On("Exec", mock.Anything, mock.AnythingOfType("string")).Return(nil, fmt.Errorf("database error")).Once()
		mockConn.On("Close", mock.Anything).Return(nil).Once()

		_, err := NewPgVault(ctx, PgVaultParams{Conn: mockConn})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "error creating tokens table")

		mockConn.AssertExpectations(t)
	})
}

func TestPgVault_Get(t *testing.T) {
	ctx := context.Background()
	key := Key{Provider: "github-provider", Identity: "octocat"}

	t.Run("absent token", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		mockRow := &MockPgRow{empty: true}
		mockConn.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), "github-provider", "octocat").Return(mockRow)

		token, err := vault.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, token)

		mockConn.AssertExpectations(t)
	})

	t.Run("stored token", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		stored := &identity.Token{AccessToken: "access-token", TokenType: "Bearer"}
		tokenData, err := json.Marshal(stored)
		require.NoError(t, err)

		mockRow := &MockPgRow{data: string(tokenData)}
		mockConn.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), "github-provider", "octocat").Return(mockRow)

		token, err := vault.Get(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, stored, token)

		mockConn.AssertExpectations(t)
	})

	t.Run("corrupted token data", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		mockRow := &MockPgRow{data: "not json"}
		mockConn.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), "github-provider", "octocat").Return(mockRow)

		_, err := vault.Get(ctx, key)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "error unmarshaling stored token")

		mockConn.AssertExpectations(t)
	})
}

func TestPgVault_Put(t *testing.T) {
	ctx := context.Background()
	key := Key{Provider: "github-provider", Identity: "octocat"}

	t.Run("stores the token as JSON", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		mockConn.On("Exec", mock.Anything, mock.AnythingOfType("string"),
			"github-provider", "octocat", mock.MatchedBy(func(data string) bool {
				var token identity.Token
				return json.Unmarshal([]byte(data), &token) == nil && token.AccessToken == "access-token"
			})).Return(nil, nil).Once()

		err := vault.Put(ctx, key, &identity.Token{AccessToken: "access-token"})
		require.NoError(t, err)

		mockConn.AssertExpectations(t)
	})

	t.Run("exec error", func(t *testing.T) {
		mockConn := &MockPgConn{}
		vault := createMockPgVault(t, mockConn)

		mockConn.On("Exec", mock.Anything, mock.AnythingOfType("string"),
			"github-provider", "octocat", mock.AnythingOfType("string")).Return(nil, fmt.Errorf("database error")).Once()

		err := vault.Put(ctx, key, &identity.Token{AccessToken: "access-token"})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "error storing token")

		mockConn.AssertExpectations(t)
	})
}

func TestPgVault_Delete(t *testing.T) {
	ctx := context.Background()
	key := Key{Provider: "github-provider", Identity: "octocat"}

	mockConn := &MockPgConn{}
	vault := createMockPgVault(t, mockConn)

	mockConn.On("Exec", mock.Anything, mock.AnythingOfType("string"), "github-provider", "octocat").Return(nil, nil).Once()

	require.NoError(t, vault.Delete(ctx, key))
	mockConn.AssertExpectations(t)
}

func TestPgVault_Close(t *testing.T) {
	mockConn := &MockPgConn{}
	vault := createMockPgVault(t, mockConn)

	mockConn.On("Close", mock.Anything).Return(nil).Once()

	assert.NoError(t, vault.Close(context.Background()))
	mockConn.AssertExpectations(t)
}
