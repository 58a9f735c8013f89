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
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// A CallbackServer receives the OAuth redirect of a three-legged flow on
// a loopback address. It serves a single redirect request, validates the
// state parameter, and hands the authorization code to WaitForCode.
type CallbackServer struct {
	port     int
	path     string
	state    string
	codeCh   chan string
	errCh    chan error
	server   *http.Server
	listener net.Listener
}

type CallbackServerParams struct {
	// Port to listen on. 0 picks a free ephemeral port.
	Port int

	// Path of the redirect endpoint. Defaults to "/callback".
	Path string

	// State is the expected OAuth state parameter. Redirects carrying a
	// different state are rejected.
	State string
}

// NewCallbackServer creates a callback server. It does not listen until
// Start is called.
func NewCallbackServer(params CallbackServerParams) *CallbackServer {
	return &CallbackServer{
		port:   params.Port,
		path:   cmp.Or(params.Path, "/callback"),
		state:  params.State,
		codeCh: make(chan string, 1),
		errCh:  make(chan error, 1),
	}
}

// Start begins listening on the loopback interface. When the configured
// port is 0, the port actually bound is reflected by Port and RedirectURL.
func (s *CallbackServer) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on loopback port %d: %w", s.port, err)
	}
	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleRedirect)
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.deliverErr(fmt.Errorf("callback server: %w", err))
		}
	}()

	return nil
}

// Port returns the port the server is listening on. Only meaningful after
// Start.
func (s *CallbackServer) Port() int {
	return s.port
}

// RedirectURL returns the redirect target to register with the provider.
func (s *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", s.port, s.path)
}

func (s *CallbackServer) handleRedirect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		s.deliverErr(fmt.Errorf("provider returned %q: %s", errParam, query.Get("error_description")))
		writeResultPage(w, http.StatusBadRequest, "Authorization failed", "The provider reported: "+errParam)
		return
	}

	if state := query.Get("state"); state != s.state {
		s.deliverErr(fmt.Errorf("state mismatch: expected %s, got %s", s.state, state))
		writeResultPage(w, http.StatusBadRequest, "Authorization failed", "The state parameter does not match.")
		return
	}

	code := query.Get("code")
	if code == "" {
		s.deliverErr(errors.New("no authorization code in redirect"))
		writeResultPage(w, http.StatusBadRequest, "Authorization failed", "No authorization code was received.")
		return
	}

	s.deliverCode(code)
	writeResultPage(w, http.StatusOK, "Authorization successful", "You can close this window and return to the application.")
}

// Only the first outcome counts; later redirects are answered but dropped.
func (s *CallbackServer) deliverCode(code string) {
	select {
	case s.codeCh <- code:
	default:
	}
}

func (s *CallbackServer) deliverErr(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// WaitForCode blocks until the redirect delivers an authorization code,
// the redirect reports an error, or ctx is done.
func (s *CallbackServer) WaitForCode(ctx context.Context) (string, error) {
	select {
	case code := <-s.codeCh:
		return code, nil
	case err := <-s.errCh:
		return "", err
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for authorization callback: %w", ctx.Err())
	}
}

// Stop shuts the server down, allowing a short grace period for the
// result page to be written.
func (s *CallbackServer) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

func writeResultPage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>%s</h1>
<p>%s</p>
</body>
</html>
`, title, title, detail)
}
