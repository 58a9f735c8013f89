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

package runtime

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlpodyssey/agent-identity-go/asynctask"
	"github.com/nlpodyssey/agent-identity-go/identity"
	"github.com/nlpodyssey/agent-identity-go/streamqueue"
	"github.com/nlpodyssey/agent-identity-go/telemetry"
	"github.com/nlpodyssey/agent-identity-go/usage"
	"golang.org/x/sync/errgroup"
)

// DefaultPromptFallback is handed to the entrypoint handler when an
// invocation payload carries no usable prompt.
const DefaultPromptFallback = "No prompt found in input, please guide customer to create a json payload with prompt key"

// InvocationRequest is the decoded body of a POST /invocations call.
type InvocationRequest struct {
	// Prompt is the user message extracted from the payload, or
	// DefaultPromptFallback when the payload had none.
	Prompt string `json:"prompt"`
	// Payload is the raw request body, kept for handlers that read
	// fields beyond the prompt.
	Payload json.RawMessage `json:"-"`
}

// HandlerFunc processes one invocation, writing output items to the stream
// queue. The runtime finishes the queue when the handler returns, so handlers
// only need to call Finish themselves when they want to end the stream early.
type HandlerFunc func(ctx context.Context, req *InvocationRequest, stream *streamqueue.Queue[StreamItem]) error

// App is an HTTP service hosting a single agent entrypoint.
type App struct {
	handler            HandlerFunc
	addr               string
	shutdownTimeout    time.Duration
	excludedTracePaths []string
}

// AppParams allows to customize an App.
type AppParams struct {
	// Addr is the address the HTTP server listens on.
	// If empty, ":8080" is used.
	Addr string
	// ShutdownTimeout bounds how long a graceful shutdown may take once a
	// termination signal arrives. If zero, 10 seconds is used.
	ShutdownTimeout time.Duration
	// ExcludedTracePaths lists request paths excluded from HTTP tracing.
	// When empty, telemetry.ExcludedURLs decides.
	ExcludedTracePaths []string
}

// NewApp creates a new App.
func NewApp(params AppParams) *App {
	return &App{
		addr:               cmp.Or(params.Addr, ":8080"),
		shutdownTimeout:    cmp.Or(params.ShutdownTimeout, 10*time.Second),
		excludedTracePaths: params.ExcludedTracePaths,
	}
}

// Entrypoint registers the handler invoked for each POST /invocations call.
// Registering a new handler replaces the previous one.
func (a *App) Entrypoint(fn HandlerFunc) {
	a.handler = fn
}

// Addr returns the address the HTTP server listens on.
func (a *App) Addr() string {
	return a.addr
}

// Handler returns the complete HTTP handler stack served by Run.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invocations", a.handleInvocations)
	mux.HandleFunc("GET /ping", a.handlePing)

	var h http.Handler = mux
	h = requestLogging(h)
	h = telemetry.HTTPMiddleware("agent-runtime", a.excludedTracePaths...)(h)
	return h
}

// Run serves the App until ctx is canceled or a termination signal arrives,
// then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	if a.handler == nil {
		return errors.New("runtime: no entrypoint handler registered")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:              a.addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		Logger().Info("Agent runtime listening", "addr", a.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("runtime: server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout)
		defer cancel()
		Logger().Info("Agent runtime shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if a.handler == nil {
		http.Error(w, "no entrypoint handler registered", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	req, err := decodeInvocationRequest(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Each invocation gets its own credentials store, so tokens acquired
	// while serving one request never leak into another.
	ctx := identity.WithRequestCredentials(r.Context(), identity.NewCredentials())
	tracker := usage.NewUsage()
	ctx = usage.NewContext(ctx, tracker)

	queue := streamqueue.New[StreamItem]()
	task := asynctask.CreateTaskNoValue(ctx, func(ctx context.Context) error {
		defer queue.Finish()
		if err := a.handler(ctx, req, queue); err != nil {
			queue.Put(ErrorItem(fmt.Sprintf("Error: %v", err)))
			return err
		}
		return nil
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	for item := range queue.Stream() {
		data, err := json.Marshal(item)
		if err != nil {
			Logger().ErrorContext(ctx, "Failed to encode stream item", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			Logger().WarnContext(ctx, "Failed to write stream item", "error", err)
			break
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			Logger().WarnContext(ctx, "Failed to flush stream item", "error", err)
		}
	}

	if result := task.Await(); result.Error != nil {
		Logger().ErrorContext(ctx, "Invocation handler failed", "error", result.Error)
	}
	if tracker.Requests > 0 {
		Logger().DebugContext(ctx, "Invocation usage",
			"requests", tracker.Requests,
			"input_tokens", tracker.InputTokens,
			"output_tokens", tracker.OutputTokens,
			"total_tokens", tracker.TotalTokens,
		)
	}
}

func (a *App) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"Healthy"}`))
}

func decodeInvocationRequest(body []byte) (*InvocationRequest, error) {
	req := &InvocationRequest{Payload: body}
	if len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, fmt.Errorf("invalid JSON payload: %v", err)
		}
	}
	if req.Prompt == "" {
		req.Prompt = DefaultPromptFallback
	}
	return req, nil
}

// requestLogging wraps h, logging one line per completed request.
func requestLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		Logger().InfoContext(r.Context(), "Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer's
// Flush support.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
