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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordDetectorDefaults(t *testing.T) {
	d := KeywordDetector{}

	detected := []string{
		"Authentication required to proceed.",
		"Please SIGN IN to your account.",
		"You need permission to view this calendar.",
		"I cannot authorize this request yet.",
		"Your credentials have expired.",
	}
	for _, text := range detected {
		assert.True(t, d.Detect(text), "expected detection for %q", text)
	}

	clean := []string{
		"",
		"You have 2 events today.",
		"The weather is sunny.",
	}
	for _, text := range clean {
		assert.False(t, d.Detect(text), "expected no detection for %q", text)
	}
}

func TestKeywordDetectorCustomKeywords(t *testing.T) {
	d := KeywordDetector{Keywords: []string{"one-time code"}}

	assert.True(t, d.Detect("Enter the ONE-TIME CODE we sent you."))
	assert.False(t, d.Detect("Please sign in to continue."))
}

func TestDefaultAuthKeywords(t *testing.T) {
	assert.Len(t, DefaultAuthKeywords, 11)
	assert.Contains(t, DefaultAuthKeywords, "sign in")
	assert.Contains(t, DefaultAuthKeywords, "requires authentication")
}
