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

package tracing

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/openai/openai-go/v2/packages/param"
)

// ConsoleSpanExporter prints traces and spans to standard output.
type ConsoleSpanExporter struct{}

func (c ConsoleSpanExporter) Export(_ context.Context, items []any) error {
	for _, item := range items {
		switch v := item.(type) {
		case Trace:
			fmt.Printf("[Exporter] trace trace_id=%s workflow=%q\n", v.TraceID(), v.Name())
		case Span:
			fmt.Printf("[Exporter] span %+v\n", v.Export())
		default:
			return fmt.Errorf("ConsoleSpanExporter: unexpected item type %T", item)
		}
	}
	return nil
}

const DefaultBackendSpanExporterEndpoint = "https://api.openai.com/v1/traces/ingest"

// BackendSpanExporter exports traces and spans to the OpenAI traces backend.
//
// Export failures are never fatal: transient errors are retried with
// exponential backoff, and exhausted or rejected batches are logged and
// dropped.
type BackendSpanExporter struct {
	apiKey       atomic.Pointer[string]
	organization string
	project      string
	Endpoint     string
	client       *retryablehttp.Client
}

type BackendSpanExporterParams struct {
	// The API key for the "Authorization" header.
	// Falls back to the OPENAI_API_KEY environment variable.
	APIKey string

	// The OpenAI organization.
	// Falls back to the OPENAI_ORG_ID environment variable.
	Organization string

	// The OpenAI project.
	// Falls back to the OPENAI_PROJECT_ID environment variable.
	Project string

	// The HTTP endpoint to which traces and spans are posted.
	// Default: DefaultBackendSpanExporterEndpoint.
	Endpoint string

	// Maximum number of retries upon failures.
	// Default: 3.
	MaxRetries param.Opt[int]

	// Base delay for the first backoff.
	// Default: 1 second.
	BaseDelay param.Opt[time.Duration]

	// Maximum delay for backoff growth.
	// Default: 30 seconds.
	MaxDelay param.Opt[time.Duration]

	// Optional custom http.Client.
	HTTPClient *http.Client
}

func NewBackendSpanExporter(params BackendSpanExporterParams) *BackendSpanExporter {
	client := retryablehttp.NewClient()
	client.RetryMax = params.MaxRetries.Or(3)
	client.RetryWaitMin = params.BaseDelay.Or(1 * time.Second)
	client.RetryWaitMax = params.MaxDelay.Or(30 * time.Second)
	client.HTTPClient = cmp.Or(params.HTTPClient, &http.Client{Timeout: 60 * time.Second})
	client.Logger = nil

	b := &BackendSpanExporter{
		organization: params.Organization,
		project:      params.Project,
		Endpoint:     cmp.Or(params.Endpoint, DefaultBackendSpanExporterEndpoint),
		client:       client,
	}
	if params.APIKey != "" {
		b.apiKey.Store(&params.APIKey)
	}
	return b
}

// SetAPIKey sets the OpenAI API key for the exporter.
func (b *BackendSpanExporter) SetAPIKey(apiKey string) {
	b.apiKey.Store(&apiKey)
}

func (b *BackendSpanExporter) APIKey() string {
	if v := b.apiKey.Load(); v != nil && *v != "" {
		return *v
	}
	return os.Getenv("OPENAI_API_KEY")
}

func (b *BackendSpanExporter) Organization() string {
	return cmp.Or(b.organization, os.Getenv("OPENAI_ORG_ID"))
}

func (b *BackendSpanExporter) Project() string {
	return cmp.Or(b.project, os.Getenv("OPENAI_PROJECT_ID"))
}

func (b *BackendSpanExporter) Export(ctx context.Context, items []any) error {
	if len(items) == 0 {
		return nil
	}

	if b.APIKey() == "" {
		Logger().Warn("BackendSpanExporter: OpenAI API key is not set, skipping trace export")
		return nil
	}

	data := make([]map[string]any, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case Trace:
			data = append(data, v.Export())
		case Span:
			data = append(data, v.Export())
		default:
			return fmt.Errorf("BackendSpanExporter: unexpected item type %T", item)
		}
	}

	jsonPayload, err := json.Marshal(map[string]any{"data": data})
	if err != nil {
		return fmt.Errorf("failed to JSON-marshal tracing payload: %w", err)
	}

	request, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, b.Endpoint, jsonPayload)
	if err != nil {
		return fmt.Errorf("failed to initialize new tracing request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+b.APIKey())
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("OpenAI-Beta", "traces=v1")
	if v := b.Organization(); v != "" {
		request.Header.Set("OpenAI-Organization", v)
	}
	if v := b.Project(); v != "" {
		request.Header.Set("OpenAI-Project", v)
	}

	// The client retries transient failures (network errors, 429, 5xx)
	// with exponential backoff; client errors (4xx) are returned as-is.
	response, err := b.client.Do(request)
	if err != nil {
		Logger().Warn("[non-fatal] Tracing: request failed, giving up on this batch.", slog.String("error", err.Error()))
		return nil
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 300 {
		Logger().Debug(fmt.Sprintf("Exported %d items", len(items)))
		return nil
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		Logger().Warn("failed to read tracing response body", slog.String("error", err.Error()))
	}
	Logger().Warn(
		"[non-fatal] Tracing: export rejected",
		slog.Int("statusCode", response.StatusCode),
		slog.String("response", string(body)),
	)
	return nil
}

// Close the underlying HTTP client's idle connections.
func (b *BackendSpanExporter) Close() {
	b.client.HTTPClient.CloseIdleConnections()
}

// BatchTraceProcessor buffers started traces and finished spans in memory
// and exports them in batches from a background goroutine. Once the buffer
// is full, new items are dropped with a warning.
type BatchTraceProcessor struct {
	exporter     Exporter
	maxQueueSize int
	maxBatchSize int
	interval     time.Duration
	// The queue length at which an export is triggered ahead of schedule.
	triggerSize int

	queueMu sync.Mutex
	queue   []any

	// wake nudges the worker when the queue passes triggerSize.
	wake chan struct{}
	// stop is closed by Shutdown.
	stop     chan struct{}
	stopOnce sync.Once

	workerMu   sync.Mutex
	workerDone chan struct{}
	running    bool
}

type BatchTraceProcessorParams struct {
	// The exporter to use.
	Exporter Exporter

	// The maximum number of items held in memory before new ones are
	// dropped.
	// Default: 8192.
	MaxQueueSize param.Opt[int]

	// The maximum number of items exported in a single batch.
	// Default: 128.
	MaxBatchSize param.Opt[int]

	// How often the background worker flushes the queue.
	// Default: 5 seconds.
	ScheduleDelay param.Opt[time.Duration]

	// The fill ratio of the queue that triggers an export ahead of
	// schedule.
	// Default: 0.7.
	ExportTriggerRatio param.Opt[float64]
}

func NewBatchTraceProcessor(params BatchTraceProcessorParams) *BatchTraceProcessor {
	maxQueueSize := params.MaxQueueSize.Or(8192)
	ratio := params.ExportTriggerRatio.Or(0.7)

	return &BatchTraceProcessor{
		exporter:     params.Exporter,
		maxQueueSize: maxQueueSize,
		maxBatchSize: params.MaxBatchSize.Or(128),
		interval:     params.ScheduleDelay.Or(5 * time.Second),
		triggerSize:  max(1, int(float64(maxQueueSize)*ratio)),
		wake:         make(chan struct{}, 1),
		stop:         make(chan struct{}),
	}
}

func (b *BatchTraceProcessor) OnTraceStart(ctx context.Context, trace Trace) error {
	b.ensureWorkerStarted(ctx)
	b.enqueue(trace, "trace")
	return nil
}

// OnTraceEnd does nothing: traces are queued on start, so they reach the
// backend even if the workflow crashes midway.
func (b *BatchTraceProcessor) OnTraceEnd(context.Context, Trace) error { return nil }

// OnSpanStart does nothing: spans are queued once finished, when their
// timing and output are known.
func (b *BatchTraceProcessor) OnSpanStart(context.Context, Span) error { return nil }

func (b *BatchTraceProcessor) OnSpanEnd(ctx context.Context, span Span) error {
	b.ensureWorkerStarted(ctx)
	b.enqueue(span, "span")
	return nil
}

// Shutdown stops the background worker and exports everything still queued.
func (b *BatchTraceProcessor) Shutdown(ctx context.Context) error {
	b.stopOnce.Do(func() { close(b.stop) })

	b.workerMu.Lock()
	running, done := b.running, b.workerDone
	b.workerMu.Unlock()

	if running {
		<-done
		return nil
	}
	// The worker never ran: drain synchronously.
	return b.flush(ctx, true)
}

// ForceFlush exports all queued items right away.
func (b *BatchTraceProcessor) ForceFlush(ctx context.Context) error {
	return b.flush(ctx, true)
}

func (b *BatchTraceProcessor) ensureWorkerStarted(ctx context.Context) {
	b.workerMu.Lock()
	defer b.workerMu.Unlock()
	if b.running {
		return
	}
	b.running = true
	b.workerDone = make(chan struct{})
	done := b.workerDone

	go func() {
		defer func() {
			b.workerMu.Lock()
			b.running = false
			b.workerMu.Unlock()
			close(done)
		}()

		if err := b.run(ctx); err != nil {
			Logger().Error("BatchTraceProcessor worker error", slog.String("error", err.Error()))
		}
	}()
}

func (b *BatchTraceProcessor) run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return b.flush(ctx, true)
		case <-ticker.C:
			if err := b.flush(ctx, false); err != nil {
				return err
			}
		case <-b.wake:
			if err := b.flush(ctx, false); err != nil {
				return err
			}
		}
	}
}

func (b *BatchTraceProcessor) enqueue(item any, kind string) {
	b.queueMu.Lock()
	if len(b.queue) >= b.maxQueueSize {
		b.queueMu.Unlock()
		Logger().Warn("Queue is full, dropping " + kind + ".")
		return
	}
	b.queue = append(b.queue, item)
	aboveTrigger := len(b.queue) >= b.triggerSize
	b.queueMu.Unlock()

	if aboveTrigger {
		select {
		case b.wake <- struct{}{}:
		default:
		}
	}
}

// flush exports queued items in batches of at most maxBatchSize until the
// queue is empty. With all set, everything goes out in a single batch.
func (b *BatchTraceProcessor) flush(ctx context.Context, all bool) error {
	for {
		batch := b.takeBatch(all)
		if len(batch) == 0 {
			return nil
		}
		if err := b.exporter.Export(ctx, batch); err != nil {
			return err
		}
	}
}

func (b *BatchTraceProcessor) takeBatch(all bool) []any {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	n := len(b.queue)
	if n == 0 {
		return nil
	}
	if !all && n > b.maxBatchSize {
		n = b.maxBatchSize
	}
	batch := slices.Clone(b.queue[:n])
	b.queue = slices.Delete(b.queue, 0, n)
	return batch
}

var globalExporter atomic.Pointer[BackendSpanExporter]
var globalProcessor atomic.Pointer[BatchTraceProcessor]

func init() {
	exporter := NewBackendSpanExporter(BackendSpanExporterParams{})
	processor := NewBatchTraceProcessor(BatchTraceProcessorParams{
		Exporter: exporter,
	})

	globalExporter.Store(exporter)
	globalProcessor.Store(processor)
}

// DefaultExporter returns the exporter installed at package initialization,
// which sends traces and spans to the OpenAI backend.
func DefaultExporter() *BackendSpanExporter {
	return globalExporter.Load()
}

// DefaultProcessor returns the processor installed at package
// initialization, which batches items for DefaultExporter.
func DefaultProcessor() *BatchTraceProcessor {
	return globalProcessor.Load()
}
