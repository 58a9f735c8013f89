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
	"errors"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

type OpenAIProviderParams struct {
	// The API key to use for the OpenAI client. If not provided, we will use the
	// OPENAI_API_KEY environment variable.
	APIKey param.Opt[string]

	// The base URL to use for the OpenAI client. If not provided, we will use the
	// default base URL.
	BaseURL param.Opt[string]

	// An optional OpenAI client to use. If not provided, we will create a new
	// OpenAI client using the APIKey and BaseURL.
	OpenaiClient *OpenaiClient

	// The organization to use for the OpenAI client.
	Organization param.Opt[string]

	// The project to use for the OpenAI client.
	Project param.Opt[string]
}

type OpenAIProvider struct {
	params OpenAIProviderParams
	client *OpenaiClient
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(params OpenAIProviderParams) *OpenAIProvider {
	if params.OpenaiClient != nil && (params.APIKey.Valid() || params.BaseURL.Valid()) {
		panic(errors.New("OpenAIProvider: don't provide APIKey or BaseURL if you provide OpenaiClient"))
	}

	return &OpenAIProvider{
		params: params,
		client: params.OpenaiClient,
	}
}

func (provider *OpenAIProvider) GetModel(modelName string) (Model, error) {
	if modelName == "" {
		return nil, fmt.Errorf("cannot get OpenAI model without a name")
	}
	return NewOpenAIChatCompletionsModel(modelName, provider.getClient()), nil
}

// We lazy load the client in case you never actually use OpenAIProvider.
func (provider *OpenAIProvider) getClient() OpenaiClient {
	if provider.client == nil {
		var apiKey string
		if provider.params.APIKey.Valid() {
			apiKey = provider.params.APIKey.Value
		} else {
			apiKey = os.Getenv("OPENAI_API_KEY")
			if apiKey == "" {
				Logger().Warn("OpenAIProvider: an API key is missing")
			}
		}

		options := []option.RequestOption{option.WithAPIKey(apiKey)}
		if provider.params.Organization.Valid() {
			options = append(options, option.WithOrganization(provider.params.Organization.Value))
		}
		if provider.params.Project.Valid() {
			options = append(options, option.WithProject(provider.params.Project.Value))
		}

		client := NewOpenaiClient(provider.params.BaseURL, options...)
		provider.client = &client
	}
	return *provider.client
}
