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

package pinecone

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/indexer"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	batchSize         = 200
	defaultCaptionKey = "caption"
)

type IndexerConfig struct {
	// Client parameters
	ApiKey     string            // required
	Headers    map[string]string // optional
	Host       string            // optional
	RestClient *http.Client      // optional
	SourceTag  string            // optional

	// Index Connection parameters
	IndexName          string            // required
	Namespace          string            // optional - if not provided the default namespace of "" will be used
	AdditionalMetadata map[string]string // optional

	// Store parameters
	// BatchSize max size for pinecone UpsertVectors and Embedding.
	// Default is 200.
	BatchSize int
	// CaptionKey is the metadata key the frame caption is stored under.
	// Default is "caption". The retriever must read the same key.
	CaptionKey string
	// FrameMetadata converts a frame document to pinecone metadata.
	// Metadata payloads must be key-value pairs in a JSON object.
	// Keys must be strings, and values can be one of the following data types:
	// 1. String
	// 2. Number (integer or floating point, gets converted to a 64 bit floating point)
	// 3. Booleans (true, false)
	// 4. List of strings
	// If FrameMetadata is not set, defaultFrameMetadata is used: legal-typed
	// entries are copied and the caption is stored under CaptionKey.
	FrameMetadata func(ctx context.Context, doc *schema.Document) (map[string]any, error)
	// Embedding vectorization method when dense vector not provided in document extra
	Embedding embedding.Embedder
}

// Indexer writes CLIP frame embeddings into a pinecone index.
// Documents without an ID are assigned a fresh UUID; assigned IDs are
// returned from Store in input order.
type Indexer struct {
	conf    *IndexerConfig
	idxConn *pinecone.IndexConnection

	// dimension of the target index, vectors are validated against it
	dimension int32
}

func NewIndexer(ctx context.Context, config *IndexerConfig) (*Indexer, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey:     config.ApiKey,
		Headers:    config.Headers,
		Host:       config.Host,
		RestClient: config.RestClient,
		SourceTag:  config.SourceTag,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to create Client: %w", err)
	}

	idx, err := pc.DescribeIndex(ctx, config.IndexName)
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to describe index %v: %w", config.IndexName, err)
	}

	idxConn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:               idx.Host,
		Namespace:          config.Namespace,
		AdditionalMetadata: config.AdditionalMetadata,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: Failed to create IndexConnection for Host: %v: %w", idx.Host, err)
	}

	if config.BatchSize == 0 {
		config.BatchSize = batchSize
	}

	if config.BatchSize < 0 {
		return nil, fmt.Errorf("pinecone: invalid batch size %d", config.BatchSize)
	}

	if config.CaptionKey == "" {
		config.CaptionKey = defaultCaptionKey
	}

	return &Indexer{
		conf:      config,
		idxConn:   idxConn,
		dimension: idx.Dimension,
	}, nil
}

func (i *Indexer) Store(ctx context.Context, docs []*schema.Document, opts ...indexer.Option) (ids []string, err error) {
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	if len(docs) == 0 {
		return nil, nil
	}

	options := indexer.GetCommonOptions(&indexer.Options{Embedding: i.conf.Embedding}, opts...)

	ctx = callbacks.OnStart(ctx, &indexer.CallbackInput{Docs: docs})

	for _, batch := range chunk(docs, i.conf.BatchSize) {
		in, err := i.makeBatchRequest(ctx, batch, options)
		if err != nil {
			return nil, err
		}

		_, err = i.idxConn.UpsertVectors(ctx, in)
		if err != nil {
			return nil, err
		}

		ids = append(ids, iter(in, func(v *pinecone.Vector) string { return v.Id })...)
	}

	callbacks.OnEnd(ctx, &indexer.CallbackOutput{IDs: ids})

	return ids, nil
}

func (i *Indexer) makeBatchRequest(ctx context.Context, batch []*schema.Document, option *indexer.Options) (
	pvs []*pinecone.Vector, err error) {

	emb := option.Embedding

	var (
		indices  []int
		captions []string
	)

	for idx, doc := range batch {
		dense := doc.DenseVector()
		if dense == nil {
			indices = append(indices, idx)
			captions = append(captions, doc.Content)
		} else if err := i.checkDimension(doc.ID, dense); err != nil {
			return nil, err
		}

		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}

		pv := &pinecone.Vector{
			Id:           id,
			Values:       f64To32(dense),
			SparseValues: toPineconeSparseVector(doc.SparseVector()),
		}

		metadata, err := i.frameMetadata(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("[makeBatchRequest] FrameMetadata failed, %w", err)
		}

		md, err := structpb.NewStruct(normalizeMetadata(metadata))
		if err != nil {
			return nil, err
		}

		pv.Metadata = md
		pvs = append(pvs, pv)
	}

	if len(captions) > 0 {
		if emb == nil {
			return nil, fmt.Errorf("[makeBatchRequest] embedding not provided from config")
		}

		vectors, err := emb.EmbedStrings(i.makeEmbeddingCtx(ctx, emb), captions)
		if err != nil {
			return nil, fmt.Errorf("[makeBatchRequest] embed error, %w", err)
		}

		if len(vectors) != len(indices) {
			return nil, fmt.Errorf("[makeBatchRequest] invalid return length of vector, got=%d, expected=%d",
				len(vectors), len(indices))
		}

		for j, idx := range indices {
			if err := i.checkDimension(pvs[idx].Id, vectors[j]); err != nil {
				return nil, err
			}

			pvs[idx].Values = f64To32(vectors[j])
		}
	}

	return pvs, nil
}

func (i *Indexer) checkDimension(id string, dense []float64) error {
	if i.dimension > 0 && len(dense) != int(i.dimension) {
		return fmt.Errorf("[makeBatchRequest] vector dimension mismatch for doc %v, got=%d, index=%d",
			id, len(dense), i.dimension)
	}

	return nil
}

func (i *Indexer) frameMetadata(ctx context.Context, doc *schema.Document) (map[string]any, error) {
	if i.conf.FrameMetadata != nil {
		return i.conf.FrameMetadata(ctx, doc)
	}

	r := make(map[string]any)

	for k := range doc.MetaData {
		v := doc.MetaData[k]
		if isValidType(v) {
			r[k] = v
		}
	}

	r[i.conf.CaptionKey] = doc.Content

	return r, nil
}

func (i *Indexer) makeEmbeddingCtx(ctx context.Context, emb embedding.Embedder) context.Context {
	runInfo := &callbacks.RunInfo{
		Component: components.ComponentOfEmbedding,
	}

	if embType, ok := components.GetType(emb); ok {
		runInfo.Type = embType
	}

	runInfo.Name = runInfo.Type + string(runInfo.Component)

	return callbacks.ReuseHandlers(ctx, runInfo)
}

const typ = "Pinecone"

func (i *Indexer) GetType() string {
	return typ
}

func (i *Indexer) IsCallbacksEnabled() bool {
	return true
}

// normalizeMetadata rewrites legal metadata values into the forms
// structpb.NewStruct accepts: []string becomes []any, small ints are widened.
func normalizeMetadata(metadata map[string]any) map[string]any {
	r := make(map[string]any, len(metadata))
	for k, v := range metadata {
		switch t := v.(type) {
		case int8:
			r[k] = int64(t)
		case int16:
			r[k] = int64(t)
		case uint8:
			r[k] = uint64(t)
		case uint16:
			r[k] = uint64(t)
		case []string:
			vs := make([]any, len(t))
			for i, s := range t {
				vs[i] = s
			}
			r[k] = vs
		default:
			r[k] = v
		}
	}

	return r
}

func isValidType(value interface{}) bool {
	switch value.(type) {
	case string:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float32, float64:
		return true
	case bool:
		return true
	case []string:
		return true
	default:
		return false
	}
}
