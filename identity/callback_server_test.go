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
	"fmt"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestCallbackServer(t *testing.T, state string) *CallbackServer {
	t.Helper()
	server := NewCallbackServer(CallbackServerParams{State: state})
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		assert.NoError(t, server.Stop(context.Background()))
	})
	return server
}

func TestCallbackServerDeliversCode(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")
	assert.NotZero(t, server.Port())
	assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", server.Port()), server.RedirectURL())

	resp, err := http.Get(server.RedirectURL() + "?code=test-code&state=expected-state")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Authorization successful")

	code, err := server.WaitForCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-code", code)
}

func TestCallbackServerRejectsStateMismatch(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")

	resp, err := http.Get(server.RedirectURL() + "?code=test-code&state=wrong-state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = server.WaitForCode(context.Background())
	assert.ErrorContains(t, err, "state mismatch: expected expected-state, got wrong-state")
}

func TestCallbackServerReportsProviderError(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")

	query := url.Values{
		"error":             {"access_denied"},
		"error_description": {"The user denied the request"},
		"state":             {"expected-state"},
	}
	resp, err := http.Get(server.RedirectURL() + "?" + query.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = server.WaitForCode(context.Background())
	assert.ErrorContains(t, err, `provider returned "access_denied"`)
	assert.ErrorContains(t, err, "The user denied the request")
}

func TestCallbackServerRejectsMissingCode(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")

	resp, err := http.Get(server.RedirectURL() + "?state=expected-state")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err = server.WaitForCode(context.Background())
	assert.ErrorContains(t, err, "no authorization code in redirect")
}

func TestCallbackServerWaitHonorsContext(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := server.WaitForCode(ctx)
	assert.ErrorContains(t, err, "waiting for authorization callback")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallbackServerKeepsFirstOutcome(t *testing.T) {
	server := startTestCallbackServer(t, "expected-state")

	for _, code := range []string{"first-code", "second-code"} {
		resp, err := http.Get(server.RedirectURL() + "?code=" + code + "&state=expected-state")
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
	}

	code, err := server.WaitForCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first-code", code)
}

func TestCallbackServerCustomPortAndPath(t *testing.T) {
	server := NewCallbackServer(CallbackServerParams{Path: "/oauth/done", State: "s"})
	require.NoError(t, server.Start())
	t.Cleanup(func() {
		assert.NoError(t, server.Stop(context.Background()))
	})

	assert.Equal(t, fmt.Sprintf("http://localhost:%d/oauth/done", server.Port()), server.RedirectURL())

	resp, err := http.Get(server.RedirectURL() + "?code=abc&state=s")
	require.NoError(t, err)
	assert.NoError(t, resp.Body.Close())

	code, err := server.WaitForCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", code)
}
