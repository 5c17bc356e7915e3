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
	"testing"

	. "github.com/bytedance/mockey"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/smartystreets/goconvey/convey"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestNewRetriever(t *testing.T) {
	PatchConvey("test NewRetriever", t, func() {
		ctx := context.Background()

		PatchConvey("test pinecone NewClient failed", func() {
			mockErr := fmt.Errorf("mock err")
			Mock(pinecone.NewClient).Return(nil, mockErr).Build()
			r, err := NewRetriever(ctx, &RetrieverConfig{})
			convey.So(err, convey.ShouldBeError, fmt.Errorf("pinecone: Failed to create Client: %w", mockErr))
			convey.So(r, convey.ShouldBeNil)
		})

		PatchConvey("test DescribeIndex failed", func() {
			mockErr := fmt.Errorf("mock err")
			pc := &pinecone.Client{}
			Mock(pinecone.NewClient).Return(pc, nil).Build()
			Mock(GetMethod(pc, "DescribeIndex")).Return(nil, mockErr).Build()
			r, err := NewRetriever(ctx, &RetrieverConfig{IndexName: "mock_index"})
			convey.So(err, convey.ShouldBeError, fmt.Errorf("pinecone: Failed to describe index mock_index: %w", mockErr))
			convey.So(r, convey.ShouldBeNil)
		})

		PatchConvey("test success", func() {
			pc := &pinecone.Client{}
			idx := &pinecone.Index{}
			Mock(pinecone.NewClient).Return(pc, nil).Build()
			Mock(GetMethod(pc, "DescribeIndex")).Return(idx, nil).Build()
			Mock(GetMethod(pc, "Index")).Return(&pinecone.IndexConnection{}, nil).Build()
			r, err := NewRetriever(ctx, &RetrieverConfig{IndexName: "mock_index"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(r, convey.ShouldNotBeNil)
			convey.So(r.conf.TopK, convey.ShouldEqual, topK)
			convey.So(r.conf.CaptionKey, convey.ShouldEqual, defaultCaptionKey)
		})
	})
}

func TestMakeQueryRequest(t *testing.T) {
	PatchConvey("test makeQueryRequest", t, func() {
		ctx := context.Background()
		r := &Retriever{
			conf: &RetrieverConfig{},
		}

		PatchConvey("test embedding is nil", func() {
			req, err := r.makeQueryRequest(ctx, &Query{Text: "test_query"}, &retriever.Options{
				TopK:      of(10),
				Embedding: nil,
			})
			convey.So(err, convey.ShouldBeError, fmt.Errorf("[makeQueryRequest] embedding method in config must not be nil when query not contains dense vector"))
			convey.So(req, convey.ShouldBeNil)
		})

		PatchConvey("test embed error", func() {
			mockErr := fmt.Errorf("mock err")
			req, err := r.makeQueryRequest(ctx, &Query{Text: "test_query"}, &retriever.Options{
				TopK:      of(10),
				Embedding: &mockEmbedding{err: mockErr},
			})
			convey.So(err, convey.ShouldBeError, mockErr)
			convey.So(req, convey.ShouldBeNil)
		})

		PatchConvey("test vector size invalid", func() {
			req, err := r.makeQueryRequest(ctx, &Query{Text: "test_query"}, &retriever.Options{
				TopK:      of(10),
				Embedding: &mockEmbedding{sizeForCall: []int{2}},
			})
			convey.So(err, convey.ShouldBeError, fmt.Errorf("[makeQueryRequest] invalid return length of vector, got=2, expected=1"))
			convey.So(req, convey.ShouldBeNil)
		})

		PatchConvey("test success with embedding", func() {
			req, err := r.makeQueryRequest(ctx, &Query{
				Text:           "test_query",
				SparseVector:   map[int]float64{1: 1.2},
				MetaDataFilter: map[string]interface{}{"asd": 123},
			}, &retriever.Options{
				TopK:      of(10),
				Embedding: &mockEmbedding{sizeForCall: []int{1}, dims: 10},
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(req, convey.ShouldNotBeNil)
			convey.So(req.TopK, convey.ShouldEqual, uint32(10))
			convey.So(len(req.Vector), convey.ShouldEqual, 10)
			convey.So(req.MetadataFilter, convey.ShouldNotBeNil)
		})

		PatchConvey("test success with dense vector", func() {
			req, err := r.makeQueryRequest(ctx, &Query{
				Text:         "test_query",
				DenseVector:  []float64{1.1, 1.2},
				SparseVector: map[int]float64{1: 1.2},
			}, &retriever.Options{
				TopK: of(10),
			})
			convey.So(err, convey.ShouldBeNil)
			convey.So(req, convey.ShouldNotBeNil)
			convey.So(len(req.Vector), convey.ShouldEqual, 2)
		})
	})
}

func TestRetrieve(t *testing.T) {
	PatchConvey("test Retrieve", t, func() {
		ctx := context.Background()
		idxConn := &pinecone.IndexConnection{}

		newMatch := func(id, caption string, score float32) *pinecone.ScoredVector {
			return &pinecone.ScoredVector{
				Vector: &pinecone.Vector{
					Id:     id,
					Values: []float32{1.1, 1.2},
					Metadata: &structpb.Struct{Fields: map[string]*structpb.Value{
						defaultCaptionKey: structpb.NewStringValue(caption),
					}},
				},
				Score: score,
			}
		}

		PatchConvey("test caption missing from metadata", func() {
			r := &Retriever{
				conf:    &RetrieverConfig{IndexName: "mock_index", TopK: topK, CaptionKey: "missing"},
				idxConn: idxConn,
			}
			Mock(GetMethod(idxConn, "QueryByVectorValues")).Return(&pinecone.QueryVectorsResponse{
				Matches: []*pinecone.ScoredVector{newMatch("1", "white marble", 0.9)},
			}, nil).Build()

			docs, err := r.Retrieve(ctx, "marble", WithQueryDenseVector([]float64{1.1, 1.2}))
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(docs, convey.ShouldBeNil)
		})

		PatchConvey("test matches mapped to documents", func() {
			r := &Retriever{
				conf:    &RetrieverConfig{IndexName: "mock_index", TopK: topK, CaptionKey: defaultCaptionKey},
				idxConn: idxConn,
			}
			Mock(GetMethod(idxConn, "QueryByVectorValues")).Return(&pinecone.QueryVectorsResponse{
				Matches: []*pinecone.ScoredVector{
					newMatch("1", "white marble", 0.9),
					newMatch("2", "grey granite", 0.4),
				},
			}, nil).Build()

			docs, err := r.Retrieve(ctx, "marble", WithQueryDenseVector([]float64{1.1, 1.2}))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(docs), convey.ShouldEqual, 2)
			convey.So(docs[0].ID, convey.ShouldEqual, "1")
			convey.So(docs[0].Content, convey.ShouldEqual, "white marble")
			convey.So(docs[0].Score(), convey.ShouldAlmostEqual, 0.9, 0.01)
		})

		PatchConvey("test score threshold filters matches", func() {
			r := &Retriever{
				conf: &RetrieverConfig{
					IndexName:      "mock_index",
					TopK:           topK,
					CaptionKey:     defaultCaptionKey,
					ScoreThreshold: of(0.5),
				},
				idxConn: idxConn,
			}
			Mock(GetMethod(idxConn, "QueryByVectorValues")).Return(&pinecone.QueryVectorsResponse{
				Matches: []*pinecone.ScoredVector{
					newMatch("1", "white marble", 0.9),
					newMatch("2", "grey granite", 0.4),
				},
			}, nil).Build()

			docs, err := r.Retrieve(ctx, "marble", WithQueryDenseVector([]float64{1.1, 1.2}))
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(docs), convey.ShouldEqual, 1)
			convey.So(docs[0].ID, convey.ShouldEqual, "1")
		})
	})
}

func of[T any](t T) *T {
	return &t
}

type mockEmbedding struct {
	err         error
	cnt         int
	sizeForCall []int
	dims        int
}

func (m *mockEmbedding) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if m.cnt > len(m.sizeForCall) {
		panic("unexpected")
	}

	if m.err != nil {
		return nil, m.err
	}

	slice := make([]float64, m.dims)
	for i := range slice {
		slice[i] = 1.1
	}

	r := make([][]float64, m.sizeForCall[m.cnt])
	m.cnt++
	for i := range r {
		r[i] = slice
	}

	return r, nil
}
