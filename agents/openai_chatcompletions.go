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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"slices"

	"github.com/nlpodyssey/agent-identity-go/tracing"
	"github.com/nlpodyssey/agent-identity-go/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
)

type OpenAIChatCompletionsModel struct {
	Model  openai.ChatModel
	client OpenaiClient
}

func NewOpenAIChatCompletionsModel(model openai.ChatModel, client OpenaiClient) OpenAIChatCompletionsModel {
	return OpenAIChatCompletionsModel{
		Model:  model,
		client: client,
	}
}

func (m OpenAIChatCompletionsModel) GetResponse(
	ctx context.Context,
	params ModelGetResponseParams,
) (*ModelResponse, error) {
	body, opts, err := m.prepareRequest(params)
	if err != nil {
		return nil, err
	}

	spanParams := tracing.GenerationSpanParams{
		Model:       m.Model,
		ModelConfig: modelSettingsMap(params.ModelSettings),
	}
	if !DontLogModelData {
		spanParams.Input = toJSONMaps(body.Messages)
	}

	var modelResponse *ModelResponse
	err = tracing.GenerationSpan(
		ctx, spanParams,
		func(ctx context.Context, span tracing.Span) error {
			response, err := m.client.Chat.Completions.New(ctx, *body, opts...)
			if err != nil {
				span.SetError(tracing.SpanError{
					Message: "Error",
					Data: map[string]any{
						"name":    fmt.Sprintf("%T", err),
						"message": err.Error(),
					},
				})
				return err
			}
			if len(response.Choices) == 0 {
				return NewModelBehaviorError("model returned no choices")
			}
			message := response.Choices[0].Message

			if DontLogModelData {
				Logger().Debug("LLM responded")
			} else {
				Logger().Debug("LLM responded", slog.String("message", SimplePrettyJSONMarshal(message)))
			}

			u := usage.NewUsage()
			if !reflect.ValueOf(response.Usage).IsZero() {
				*u = usage.Usage{
					Requests:              1,
					InputTokens:           uint64(response.Usage.PromptTokens),
					CachedInputTokens:     uint64(response.Usage.PromptTokensDetails.CachedTokens),
					OutputTokens:          uint64(response.Usage.CompletionTokens),
					ReasoningOutputTokens: uint64(response.Usage.CompletionTokensDetails.ReasoningTokens),
					TotalTokens:           uint64(response.Usage.TotalTokens),
				}
			}

			if spanData, ok := span.SpanData().(*tracing.GenerationSpanData); ok {
				if !DontLogModelData {
					spanData.Output = toJSONMaps([]openai.ChatCompletionMessage{message})
				}
				spanData.Usage = map[string]any{
					"input_tokens":  u.InputTokens,
					"output_tokens": u.OutputTokens,
				}
			}

			modelResponse = &ModelResponse{
				Message: message,
				Usage:   u,
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return modelResponse, nil
}

func (m OpenAIChatCompletionsModel) prepareRequest(
	params ModelGetResponseParams,
) (*openai.ChatCompletionNewParams, []option.RequestOption, error) {
	messages := slices.Clone(params.Input)
	if params.SystemInstructions.Valid() {
		messages = slices.Insert(messages, 0, openai.SystemMessage(params.SystemInstructions.Value))
	}

	var convertedTools []openai.ChatCompletionToolUnionParam
	for _, tool := range params.Tools {
		ft, ok := tool.(FunctionTool)
		if !ok {
			return nil, nil, UserErrorf("unsupported tool type %T", tool)
		}
		convertedTools = append(convertedTools, functionToolToOpenai(ft))
	}

	var parallelToolCalls param.Opt[bool]
	if params.ModelSettings.ParallelToolCalls.Valid() {
		if params.ModelSettings.ParallelToolCalls.Value && len(params.Tools) > 0 {
			parallelToolCalls = param.NewOpt(true)
		} else if !params.ModelSettings.ParallelToolCalls.Value {
			parallelToolCalls = param.NewOpt(false)
		}
	}

	if DontLogModelData {
		Logger().Debug("Calling LLM")
	} else {
		Logger().Debug(
			"Calling LLM",
			slog.String("Messages", SimplePrettyJSONMarshal(messages)),
			slog.String("Tools", SimplePrettyJSONMarshal(convertedTools)),
		)
	}

	body := &openai.ChatCompletionNewParams{
		Model:             m.Model,
		Messages:          messages,
		Tools:             convertedTools,
		Temperature:       params.ModelSettings.Temperature,
		TopP:              params.ModelSettings.TopP,
		FrequencyPenalty:  params.ModelSettings.FrequencyPenalty,
		PresencePenalty:   params.ModelSettings.PresencePenalty,
		MaxTokens:         params.ModelSettings.MaxTokens,
		ParallelToolCalls: parallelToolCalls,
	}

	var opts []option.RequestOption
	for k, v := range params.ModelSettings.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}
	for k, v := range params.ModelSettings.ExtraQuery {
		opts = append(opts, option.WithQuery(k, v))
	}
	return body, opts, nil
}

// toJSONMaps converts a slice of JSON-serializable values into generic
// maps for span data. It returns nil if serialization fails.
func toJSONMaps[T any](values []T) []map[string]any {
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	var out []map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

func modelSettingsMap(ms ModelSettings) map[string]any {
	config := make(map[string]any)
	if ms.Temperature.Valid() {
		config["temperature"] = ms.Temperature.Value
	}
	if ms.TopP.Valid() {
		config["top_p"] = ms.TopP.Value
	}
	if ms.FrequencyPenalty.Valid() {
		config["frequency_penalty"] = ms.FrequencyPenalty.Value
	}
	if ms.PresencePenalty.Valid() {
		config["presence_penalty"] = ms.PresencePenalty.Value
	}
	if ms.MaxTokens.Valid() {
		config["max_tokens"] = ms.MaxTokens.Value
	}
	return config
}

func functionToolToOpenai(tool FunctionTool) openai.ChatCompletionToolUnionParam {
	description := param.Null[string]()
	if tool.Description != "" {
		description = param.NewOpt(tool.Description)
	}
	return openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
		Name:        tool.Name,
		Description: description,
		Parameters:  openai.FunctionParameters(tool.ParamsJSONSchema),
		Strict:      param.NewOpt(tool.StrictJSONSchema.Or(true)),
	})
}
