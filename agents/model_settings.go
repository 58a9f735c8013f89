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

package agents

import (
	"maps"

	"github.com/openai/openai-go/v2/packages/param"
)

// ModelSettings holds settings to use when calling an LLM.
//
// This type holds optional model configuration parameters (e.g. temperature,
// top_p, penalties, etc.).
//
// Not all models/providers support all of these parameters, so please check
// the API documentation for the specific model and provider you are using.
type ModelSettings struct {
	// The temperature to use when calling the model.
	Temperature param.Opt[float64]

	// The top_p to use when calling the model.
	TopP param.Opt[float64]

	// The frequency penalty to use when calling the model.
	FrequencyPenalty param.Opt[float64]

	// The presence penalty to use when calling the model.
	PresencePenalty param.Opt[float64]

	// Whether to use parallel tool calls when calling the model.
	ParallelToolCalls param.Opt[bool]

	// The maximum number of output tokens to generate.
	MaxTokens param.Opt[int64]

	// Additional headers to provide with the request.
	ExtraHeaders map[string]string

	// Additional query fields to provide with the request.
	ExtraQuery map[string]string
}

// Resolve produces a new ModelSettings by overlaying any valid values from
// the override on top of this instance.
func (ms ModelSettings) Resolve(override ModelSettings) ModelSettings {
	newSettings := ms
	resolveOpt(&newSettings.Temperature, override.Temperature)
	resolveOpt(&newSettings.TopP, override.TopP)
	resolveOpt(&newSettings.FrequencyPenalty, override.FrequencyPenalty)
	resolveOpt(&newSettings.PresencePenalty, override.PresencePenalty)
	resolveOpt(&newSettings.ParallelToolCalls, override.ParallelToolCalls)
	resolveOpt(&newSettings.MaxTokens, override.MaxTokens)
	resolveMap(&newSettings.ExtraHeaders, override.ExtraHeaders)
	resolveMap(&newSettings.ExtraQuery, override.ExtraQuery)
	return newSettings
}

func resolveOpt[T comparable](base *param.Opt[T], override param.Opt[T]) {
	if override.Valid() {
		*base = override
	}
}

func resolveMap[M ~map[K]V, K comparable, V any](base *M, override M) {
	if len(override) > 0 {
		*base = maps.Clone(override)
	}
}
