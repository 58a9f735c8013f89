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

package authflow

import "strings"

// DefaultAuthKeywords are the phrases whose presence in an agent
// response marks it as demanding authorization.
var DefaultAuthKeywords = []string{
	"authentication", "authorize", "authorization", "auth",
	"sign in", "login", "access", "permission", "credential",
	"need authentication", "requires authentication",
}

// Detector decides whether an agent response text demands authorization.
type Detector interface {
	Detect(text string) bool
}

// KeywordDetector reports an authorization demand when any of its
// keywords occurs in the text, case-insensitively. The zero value uses
// DefaultAuthKeywords.
type KeywordDetector struct {
	Keywords []string
}

func (d KeywordDetector) Detect(text string) bool {
	keywords := d.Keywords
	if len(keywords) == 0 {
		keywords = DefaultAuthKeywords
	}
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(text, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
