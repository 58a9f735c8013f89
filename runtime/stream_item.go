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

// Package runtime hosts agent request handlers behind an HTTP service
// speaking the invocation contract of Amazon Bedrock AgentCore:
// POST /invocations streams handler output as server-sent events, and
// GET /ping reports service health.
package runtime

import "encoding/json"

// StreamItemKind classifies a chunk of a streamed invocation response.
type StreamItemKind string

const (
	// StreamItemKindStatus marks progress notes about the request, such
	// as authorization prompts.
	StreamItemKindStatus StreamItemKind = "status"
	// StreamItemKindMessage marks agent response content.
	StreamItemKindMessage StreamItemKind = "message"
	// StreamItemKindError marks a failure reported as part of the
	// stream instead of an HTTP error.
	StreamItemKindError StreamItemKind = "error"
)

// StreamItem is one chunk of a streamed invocation response. Text
// carries human-readable content; Payload carries structured content
// when a handler has one to offer.
type StreamItem struct {
	Kind    StreamItemKind  `json:"kind"`
	Text    string          `json:"text,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StatusItem returns a status-kind StreamItem with the given text.
func StatusItem(text string) StreamItem {
	return StreamItem{Kind: StreamItemKindStatus, Text: text}
}

// MessageItem returns a message-kind StreamItem with the given text.
func MessageItem(text string) StreamItem {
	return StreamItem{Kind: StreamItemKindMessage, Text: text}
}

// ErrorItem returns an error-kind StreamItem with the given text.
func ErrorItem(text string) StreamItem {
	return StreamItem{Kind: StreamItemKindError, Text: text}
}
