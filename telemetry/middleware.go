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

package telemetry

import (
	"net/http"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	// EnvExcludedURLs lists comma-separated request paths excluded from
	// HTTP tracing.
	EnvExcludedURLs = "AGENTID_OTEL_EXCLUDED_URLS"

	// DefaultExcludedURLs is the excluded-path list used when
	// AGENTID_OTEL_EXCLUDED_URLS is not set. The service endpoints are
	// excluded out of the box: agent runs carry their own spans, and
	// server spans for them (and for health probes) are noise.
	DefaultExcludedURLs = "/ping,/invocations"
)

// HTTPMiddleware returns a middleware that instruments requests with
// otelhttp, skipping the given paths. When no paths are given, the list
// comes from AGENTID_OTEL_EXCLUDED_URLS.
func HTTPMiddleware(operation string, paths ...string) func(http.Handler) http.Handler {
	var excluded map[string]bool
	if len(paths) == 0 {
		excluded = ExcludedURLs()
	} else {
		excluded = make(map[string]bool, len(paths))
		for _, p := range paths {
			excluded[p] = true
		}
	}
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, operation,
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !excluded[r.URL.Path]
			}),
		)
	}
}

// ExcludedURLs parses AGENTID_OTEL_EXCLUDED_URLS into the set of
// request paths excluded from HTTP tracing.
func ExcludedURLs() map[string]bool {
	raw := os.Getenv(EnvExcludedURLs)
	if raw == "" {
		raw = DefaultExcludedURLs
	}
	paths := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths[p] = true
		}
	}
	return paths
}
