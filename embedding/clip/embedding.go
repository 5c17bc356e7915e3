/*
 * Copyright 2025 CMC Lens Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package clip embeds captions and search text through the project's CLIP
// serving endpoint, which speaks the OpenAI embeddings API.
package clip

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultModel      = "clip-vit-large-patch14"
	defaultDimensions = 768
)

type EmbeddingConfig struct {
	// BaseURL of the CLIP serving endpoint, e.g. "http://localhost:7997/v1". Required.
	BaseURL string
	// APIKey for the endpoint. Optional, most local deployments ignore it.
	APIKey string
	// Model served at the endpoint, default "clip-vit-large-patch14".
	Model string
	// Timeout specifies the http request timeout.
	Timeout time.Duration
	// Dimensions is the expected embedding width, default 768. Responses with
	// a different width are rejected before they reach the index.
	Dimensions int
}

var _ embedding.Embedder = (*Embedder)(nil)

type Embedder struct {
	cli  *openai.Client
	conf *EmbeddingConfig
}

func NewEmbedder(ctx context.Context, config *EmbeddingConfig) (*Embedder, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("[NewEmbedder] clip base url not provided")
	}

	if config.Model == "" {
		config.Model = defaultModel
	}

	if config.Dimensions == 0 {
		config.Dimensions = defaultDimensions
	}

	cc := openai.DefaultConfig(config.APIKey)
	cc.BaseURL = config.BaseURL
	cc.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Embedder{
		cli:  openai.NewClientWithConfig(cc),
		conf: config,
	}, nil
}

func (e *Embedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) (
	embeddings [][]float64, err error) {

	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	options := embedding.GetCommonOptions(&embedding.Options{
		Model: &e.conf.Model,
	}, opts...)

	conf := &embedding.Config{
		Model:          *options.Model,
		EncodingFormat: string(openai.EmbeddingEncodingFormatFloat),
	}

	ctx = callbacks.OnStart(ctx, &embedding.CallbackInput{
		Texts:  texts,
		Config: conf,
	})

	resp, err := e.cli.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:          texts,
		Model:          openai.EmbeddingModel(*options.Model),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("[EmbedStrings] clip embed error: %w", err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("[EmbedStrings] invalid return length of embeddings, got=%d, expected=%d",
			len(resp.Data), len(texts))
	}

	embeddings = make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) != e.conf.Dimensions {
			return nil, fmt.Errorf("[EmbedStrings] invalid embedding width, got=%d, expected=%d",
				len(d.Embedding), e.conf.Dimensions)
		}

		embeddings[i] = toFloat64(d.Embedding)
	}

	callbacks.OnEnd(ctx, &embedding.CallbackOutput{
		Embeddings: embeddings,
		Config:     conf,
		TokenUsage: &embedding.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	})

	return embeddings, nil
}

const typ = "CLIP"

func (e *Embedder) GetType() string {
	return typ
}

func (e *Embedder) IsCallbacksEnabled() bool {
	return true
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}

	return out
}
